package dispatch

import (
	"strconv"
	"strings"
	"time"

	"homeline/pkg/classify"
	"homeline/pkg/domain"
)

// Command is the closed set of actions the dispatcher executes. Decoding
// from the classifier's entity map happens once, here, so handlers work
// with typed payloads instead of string maps.
type Command interface {
	isCommand()
}

type HelpCommand struct{}

type AddContactCommand struct {
	Name  string
	Phone string
}

type FindContactCommand struct {
	Query string
	// TargetName is set when the caller asks about someone else's
	// contact book.
	TargetName string
}

type ListContactsCommand struct{}

type AddListItemCommand struct {
	ListName string
	Item     string
	Quantity string
}

type RemoveListItemCommand struct {
	ListName string
	Item     string
}

type CompleteListItemCommand struct {
	ListName string
	Item     string
}

type ShowListCommand struct {
	ListName string
	// TargetName is set when the caller asks for someone else's list.
	TargetName string
}

type ShareListCommand struct {
	ListName   string
	TargetName string
}

type UpdateLocationCommand struct {
	Address string
}

type WhereIsCommand struct {
	TargetName string
}

type StartTripCommand struct {
	Destination string
}

type CancelTripCommand struct{}

type ETACommand struct {
	TargetName string
}

type GrantPermissionCommand struct {
	TargetName string
	Kind       domain.PermissionKind
	Duration   time.Duration
}

type RevokePermissionCommand struct {
	TargetName string
	Kind       domain.PermissionKind
}

type UnknownCommand struct {
	Raw string
}

func (HelpCommand) isCommand()             {}
func (AddContactCommand) isCommand()       {}
func (FindContactCommand) isCommand()      {}
func (ListContactsCommand) isCommand()     {}
func (AddListItemCommand) isCommand()      {}
func (RemoveListItemCommand) isCommand()   {}
func (CompleteListItemCommand) isCommand() {}
func (ShowListCommand) isCommand()         {}
func (ShareListCommand) isCommand()        {}
func (UpdateLocationCommand) isCommand()   {}
func (WhereIsCommand) isCommand()          {}
func (StartTripCommand) isCommand()        {}
func (CancelTripCommand) isCommand()       {}
func (ETACommand) isCommand()              {}
func (GrantPermissionCommand) isCommand()  {}
func (RevokePermissionCommand) isCommand() {}
func (UnknownCommand) isCommand()          {}

// FromResult decodes a classification result into a typed command. Unmapped
// or unknown intents decode to UnknownCommand, which routes to the fallback
// handler.
func FromResult(res classify.Result) Command {
	get := func(key string) string {
		return strings.TrimSpace(res.Entities[key])
	}
	switch res.Intent {
	case classify.IntentHelp:
		return HelpCommand{}
	case classify.IntentAddContact:
		return AddContactCommand{
			Name:  get(classify.EntityContactName),
			Phone: get(classify.EntityContactPhone),
		}
	case classify.IntentFindContact:
		return FindContactCommand{
			Query:      get(classify.EntityContactName),
			TargetName: get(classify.EntityTargetName),
		}
	case classify.IntentListContacts:
		return ListContactsCommand{}
	case classify.IntentAddListItem:
		return AddListItemCommand{
			ListName: get(classify.EntityListName),
			Item:     get(classify.EntityListItem),
			Quantity: get(classify.EntityQuantity),
		}
	case classify.IntentRemoveListItem:
		return RemoveListItemCommand{
			ListName: get(classify.EntityListName),
			Item:     get(classify.EntityListItem),
		}
	case classify.IntentCompleteListItem:
		return CompleteListItemCommand{
			ListName: get(classify.EntityListName),
			Item:     get(classify.EntityListItem),
		}
	case classify.IntentShowList:
		return ShowListCommand{
			ListName:   get(classify.EntityListName),
			TargetName: get(classify.EntityTargetName),
		}
	case classify.IntentShareList:
		return ShareListCommand{
			ListName:   get(classify.EntityListName),
			TargetName: get(classify.EntityTargetName),
		}
	case classify.IntentUpdateLocation:
		return UpdateLocationCommand{Address: get(classify.EntityLocation)}
	case classify.IntentWhereIs:
		return WhereIsCommand{TargetName: get(classify.EntityTargetName)}
	case classify.IntentStartTrip:
		return StartTripCommand{Destination: get(classify.EntityDestination)}
	case classify.IntentCancelTrip:
		return CancelTripCommand{}
	case classify.IntentETA:
		return ETACommand{TargetName: get(classify.EntityTargetName)}
	case classify.IntentGrantPermission:
		return GrantPermissionCommand{
			TargetName: get(classify.EntityTargetName),
			Kind:       parseKind(get(classify.EntityPermission)),
			Duration:   parseDuration(get(classify.EntityDuration)),
		}
	case classify.IntentRevokePermission:
		return RevokePermissionCommand{
			TargetName: get(classify.EntityTargetName),
			Kind:       parseKind(get(classify.EntityPermission)),
		}
	default:
		return UnknownCommand{Raw: res.RawMessage}
	}
}

func parseKind(s string) domain.PermissionKind {
	switch strings.ToLower(s) {
	case "location":
		return domain.PermLocation
	case "eta":
		return domain.PermETA
	case "contacts":
		return domain.PermContacts
	case "lists":
		return domain.PermLists
	default:
		return ""
	}
}

// parseDuration understands Go durations ("2h", "90m") plus the spoken
// forms the classifier tends to emit ("2 hours", "1 day"). Unparseable
// input yields zero, meaning no expiration.
func parseDuration(s string) time.Duration {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	fields := strings.Fields(s)
	if len(fields) != 2 {
		return 0
	}
	n, err := strconv.Atoi(fields[0])
	if err != nil || n <= 0 {
		return 0
	}
	switch strings.TrimSuffix(fields[1], "s") {
	case "minute", "min":
		return time.Duration(n) * time.Minute
	case "hour", "hr":
		return time.Duration(n) * time.Hour
	case "day":
		return time.Duration(n) * 24 * time.Hour
	case "week":
		return time.Duration(n) * 7 * 24 * time.Hour
	default:
		return 0
	}
}
