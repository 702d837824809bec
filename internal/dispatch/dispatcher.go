// Package dispatch maps classified intents to handlers and converts every
// internal failure into a safe reply. This boundary is the single point
// where errors are kept away from the SMS channel.
package dispatch

import (
	"context"
	"log/slog"
	"strings"

	"homeline/internal/contacts"
	"homeline/internal/format"
	"homeline/internal/guard"
	"homeline/internal/lists"
	"homeline/internal/trips"
	"homeline/pkg/classify"
	"homeline/pkg/domain"
)

// Apology is the fixed reply for any internal failure. The underlying error
// never reaches the SMS channel.
const Apology = "Sorry, something went wrong on my end. Please try again in a little while."

const fallbackReply = `Sorry, I didn't catch that. Text "help" to see what I can do.`

const helpReply = `I can help with:
- lists: "add milk to the grocery list", "show the list", "remove milk", "check off milk", "share my list with Alex"
- location: "I'm at 123 Main St", "where is Alex?"
- trips: "heading to the office", "cancel my trip", "when will Alex arrive?"
- contacts: "add contact Dana 555-0100", "find Dana"
- access: "give Alex location access for 2 hours", "revoke Alex's eta access"`

// UserStore is the slice of the store the dispatcher needs to resolve the
// people commands refer to.
type UserStore interface {
	ListUsers() ([]domain.User, error)
}

// Config wires the dispatcher's collaborators.
type Config struct {
	Users     UserStore
	Guard     *guard.Guard
	Lists     *lists.Service
	Trips     *trips.Engine
	Contacts  *contacts.Service
	Formatter *format.Formatter
}

// Dispatcher routes one classified message to exactly one handler.
type Dispatcher struct {
	users    UserStore
	guard    *guard.Guard
	lists    *lists.Service
	trips    *trips.Engine
	contacts *contacts.Service
	fmt      *format.Formatter
}

// New constructs a dispatcher.
func New(cfg Config) *Dispatcher {
	f := cfg.Formatter
	if f == nil {
		f = format.New(0)
	}
	return &Dispatcher{
		users:    cfg.Users,
		guard:    cfg.Guard,
		lists:    cfg.Lists,
		trips:    cfg.Trips,
		contacts: cfg.Contacts,
		fmt:      f,
	}
}

// Dispatch executes the handler for a classification result and always
// returns reply text. Panics and handler errors become the fixed apology.
func (d *Dispatcher) Dispatch(ctx context.Context, res classify.Result, caller domain.User) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("handler panicked", "intent", res.Intent, "user", caller.ID, "panic", r)
			reply = Apology
		}
	}()
	out, err := d.handle(ctx, FromResult(res), caller)
	if err != nil {
		slog.Error("handler failed", "intent", res.Intent, "user", caller.ID, "err", err)
		return Apology
	}
	if strings.TrimSpace(out) == "" {
		return fallbackReply
	}
	return out
}

func (d *Dispatcher) handle(ctx context.Context, cmd Command, caller domain.User) (string, error) {
	switch cmd := cmd.(type) {
	case HelpCommand:
		return d.fmt.Text(helpReply), nil
	case AddContactCommand:
		return d.handleAddContact(caller, cmd)
	case FindContactCommand:
		return d.handleFindContact(caller, cmd)
	case ListContactsCommand:
		return d.handleFindContact(caller, FindContactCommand{})
	case AddListItemCommand:
		return d.handleAddListItem(caller, cmd)
	case RemoveListItemCommand:
		return d.handleRemoveListItem(caller, cmd)
	case CompleteListItemCommand:
		return d.handleCompleteListItem(caller, cmd)
	case ShowListCommand:
		return d.handleShowList(caller, cmd)
	case ShareListCommand:
		return d.handleShareList(caller, cmd)
	case UpdateLocationCommand:
		return d.handleUpdateLocation(ctx, caller, cmd)
	case WhereIsCommand:
		return d.handleWhereIs(caller, cmd)
	case StartTripCommand:
		return d.handleStartTrip(ctx, caller, cmd)
	case CancelTripCommand:
		return d.handleCancelTrip(caller)
	case ETACommand:
		return d.handleETA(ctx, caller, cmd)
	case GrantPermissionCommand:
		return d.handleGrantPermission(caller, cmd)
	case RevokePermissionCommand:
		return d.handleRevokePermission(caller, cmd)
	default:
		return fallbackReply, nil
	}
}

// resolveUser matches a spoken name against the known users: exact name
// first, then case-insensitive substring.
func (d *Dispatcher) resolveUser(name string) (domain.User, bool, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.User{}, false, nil
	}
	users, err := d.users.ListUsers()
	if err != nil {
		return domain.User{}, false, err
	}
	for _, u := range users {
		if strings.EqualFold(u.Name, name) {
			return u, true, nil
		}
	}
	for _, u := range users {
		if strings.Contains(strings.ToLower(u.Name), strings.ToLower(name)) {
			return u, true, nil
		}
	}
	return domain.User{}, false, nil
}
