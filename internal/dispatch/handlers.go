package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"homeline/internal/trips"
	"homeline/pkg/domain"
)

func (d *Dispatcher) handleAddContact(caller domain.User, cmd AddContactCommand) (string, error) {
	if cmd.Name == "" {
		return "Who should I add? Try \"add contact Dana 555-0100\".", nil
	}
	contact, err := d.contacts.Add(caller.ID, cmd.Name, cmd.Phone)
	if err != nil {
		return "", err
	}
	if contact.PhoneNumber == "" {
		return d.fmt.Text(fmt.Sprintf("Added %s to your contacts.", contact.Name)), nil
	}
	return d.fmt.Text(fmt.Sprintf("Added %s (%s) to your contacts.", contact.Name, contact.PhoneNumber)), nil
}

func (d *Dispatcher) handleFindContact(caller domain.User, cmd FindContactCommand) (string, error) {
	target, reply, err := d.targetOrSelf(caller, cmd.TargetName)
	if reply != "" || err != nil {
		return reply, err
	}
	if target.ID != caller.ID && !d.guard.HasPermission(caller, target.ID, domain.PermContacts) {
		return d.fmt.Text(fmt.Sprintf("You don't have permission to see %s's contacts.", target.Name)), nil
	}
	found, err := d.contacts.Find(target.ID, cmd.Query)
	if err != nil {
		return "", err
	}
	return d.fmt.Contacts(found), nil
}

func (d *Dispatcher) handleAddListItem(caller domain.User, cmd AddListItemCommand) (string, error) {
	if cmd.Item == "" {
		return "What should I add? Try \"add milk to the grocery list\".", nil
	}
	list, reply, err := d.editableList(caller, cmd.ListName)
	if reply != "" || err != nil {
		return reply, err
	}
	item, err := d.lists.AddItem(list, caller.ID, cmd.Item, cmd.Quantity)
	if err != nil {
		return "", err
	}
	return d.fmt.Text(fmt.Sprintf("Added %s to %s.", item.Content, list.Name)), nil
}

func (d *Dispatcher) handleRemoveListItem(caller domain.User, cmd RemoveListItemCommand) (string, error) {
	if cmd.Item == "" {
		return "What should I remove?", nil
	}
	list, reply, err := d.editableList(caller, cmd.ListName)
	if reply != "" || err != nil {
		return reply, err
	}
	count, err := d.lists.RemoveItems(list, cmd.Item)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return d.fmt.Text(fmt.Sprintf("No match for %q on %s.", cmd.Item, list.Name)), nil
	}
	return d.fmt.Text(fmt.Sprintf("Removed %d item(s) from %s.", count, list.Name)), nil
}

func (d *Dispatcher) handleCompleteListItem(caller domain.User, cmd CompleteListItemCommand) (string, error) {
	if cmd.Item == "" {
		return "What should I check off?", nil
	}
	list, reply, err := d.editableList(caller, cmd.ListName)
	if reply != "" || err != nil {
		return reply, err
	}
	count, err := d.lists.CompleteItems(list, cmd.Item)
	if err != nil {
		return "", err
	}
	if count == 0 {
		return d.fmt.Text(fmt.Sprintf("No match for %q on %s.", cmd.Item, list.Name)), nil
	}
	return d.fmt.Text(fmt.Sprintf("Checked off %d item(s) on %s.", count, list.Name)), nil
}

func (d *Dispatcher) handleShowList(caller domain.User, cmd ShowListCommand) (string, error) {
	target, reply, err := d.targetOrSelf(caller, cmd.TargetName)
	if reply != "" || err != nil {
		return reply, err
	}
	list, ok, err := d.lists.ResolveList(target.ID, cmd.ListName)
	if err != nil {
		return "", err
	}
	if !ok {
		return d.fmt.Text(fmt.Sprintf("I couldn't find a list matching %q.", cmd.ListName)), nil
	}
	allowed, err := d.lists.HasAccess(list, caller.ID, false)
	if err != nil {
		return "", err
	}
	// A lists grant from the owner allows read access without a share row.
	if !allowed && !d.guard.HasPermission(caller, list.OwnerID, domain.PermLists) {
		return d.fmt.Text(fmt.Sprintf("You don't have access to %s.", list.Name)), nil
	}
	items, err := d.lists.Items(list)
	if err != nil {
		return "", err
	}
	return d.fmt.List(list, items), nil
}

func (d *Dispatcher) handleShareList(caller domain.User, cmd ShareListCommand) (string, error) {
	if cmd.TargetName == "" {
		return "Who should I share it with?", nil
	}
	list, ok, err := d.lists.ResolveList(caller.ID, cmd.ListName)
	if err != nil {
		return "", err
	}
	if !ok {
		return d.fmt.Text(fmt.Sprintf("I couldn't find a list matching %q.", cmd.ListName)), nil
	}
	if list.OwnerID != caller.ID && !caller.IsPrimaryUser {
		return d.fmt.Text(fmt.Sprintf("Only the owner can share %s.", list.Name)), nil
	}
	target, found, err := d.resolveUser(cmd.TargetName)
	if err != nil {
		return "", err
	}
	if !found {
		return d.fmt.Text(fmt.Sprintf("I don't know anyone named %q.", cmd.TargetName)), nil
	}
	if err := d.lists.Share(list, target.ID, true); err != nil {
		return "", err
	}
	return d.fmt.Text(fmt.Sprintf("Shared %s with %s.", list.Name, target.Name)), nil
}

func (d *Dispatcher) handleUpdateLocation(ctx context.Context, caller domain.User, cmd UpdateLocationCommand) (string, error) {
	if cmd.Address == "" {
		return "Where are you? Try \"I'm at 123 Main St\".", nil
	}
	loc, err := d.trips.SetCurrentLocationFromAddress(ctx, caller.ID, cmd.Address)
	if errors.Is(err, trips.ErrAddressNotFound) {
		return d.fmt.Text(fmt.Sprintf("I couldn't find %q on the map, so I left your location unchanged.", cmd.Address)), nil
	}
	if err != nil {
		return "", err
	}
	return d.fmt.Text(fmt.Sprintf("Got it, your location is now %s.", loc.Address)), nil
}

func (d *Dispatcher) handleWhereIs(caller domain.User, cmd WhereIsCommand) (string, error) {
	target, reply, err := d.targetOrSelf(caller, cmd.TargetName)
	if reply != "" || err != nil {
		return reply, err
	}
	if !d.guard.HasPermission(caller, target.ID, domain.PermLocation) {
		return d.fmt.Text(fmt.Sprintf("You don't have permission to see %s's location.", target.Name)), nil
	}
	loc, ok, err := d.trips.CurrentLocation(target.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return d.fmt.Text(fmt.Sprintf("I don't have a location on file for %s.", target.Name)), nil
	}
	return d.fmt.Location(target.Name, loc), nil
}

func (d *Dispatcher) handleStartTrip(ctx context.Context, caller domain.User, cmd StartTripCommand) (string, error) {
	if cmd.Destination == "" {
		return "Where are you headed?", nil
	}
	trip, err := d.trips.StartTrip(ctx, caller.ID, cmd.Destination)
	if errors.Is(err, trips.ErrAddressNotFound) {
		return d.fmt.Text(fmt.Sprintf("I couldn't find %q on the map, so no trip was started.", cmd.Destination)), nil
	}
	if err != nil {
		return "", err
	}
	return d.fmt.Trip(trip), nil
}

func (d *Dispatcher) handleCancelTrip(caller domain.User) (string, error) {
	trip, ok, err := d.trips.CancelTrip(caller.ID)
	if err != nil {
		return "", err
	}
	if !ok {
		return "You don't have an active trip.", nil
	}
	return d.fmt.Text(fmt.Sprintf("Cancelled your trip to %s.", trip.DestinationAddress)), nil
}

func (d *Dispatcher) handleETA(ctx context.Context, caller domain.User, cmd ETACommand) (string, error) {
	target, reply, err := d.targetOrSelf(caller, cmd.TargetName)
	if reply != "" || err != nil {
		return reply, err
	}
	if !d.guard.HasPermission(caller, target.ID, domain.PermETA) {
		return d.fmt.Text(fmt.Sprintf("You don't have permission to see %s's ETA.", target.Name)), nil
	}
	res, err := d.trips.ETA(ctx, target.ID)
	if errors.Is(err, trips.ErrNoActiveTrip) {
		return d.fmt.Text(fmt.Sprintf("%s doesn't have an active trip.", target.Name)), nil
	}
	if errors.Is(err, trips.ErrNoCurrentLocation) {
		return d.fmt.Text(fmt.Sprintf("I don't know where %s is right now, so I can't estimate an arrival.", target.Name)), nil
	}
	if err != nil {
		return "", err
	}
	return d.fmt.ETA(target.Name, res), nil
}

func (d *Dispatcher) handleGrantPermission(caller domain.User, cmd GrantPermissionCommand) (string, error) {
	if cmd.TargetName == "" {
		return "Who should get access?", nil
	}
	if cmd.Kind == "" {
		return "Which access: location, eta, contacts, or lists?", nil
	}
	target, found, err := d.resolveUser(cmd.TargetName)
	if err != nil {
		return "", err
	}
	if !found {
		return d.fmt.Text(fmt.Sprintf("I don't know anyone named %q.", cmd.TargetName)), nil
	}
	var expiresAt *time.Time
	if cmd.Duration > 0 {
		t := time.Now().UTC().Add(cmd.Duration)
		expiresAt = &t
	}
	if err := d.guard.Grant(caller.ID, target.ID, cmd.Kind, expiresAt); err != nil {
		return "", err
	}
	if expiresAt != nil {
		return d.fmt.Text(fmt.Sprintf("%s can see your %s until %s.", target.Name, cmd.Kind, expiresAt.Format("Jan 2 3:04 PM"))), nil
	}
	return d.fmt.Text(fmt.Sprintf("%s can now see your %s.", target.Name, cmd.Kind)), nil
}

func (d *Dispatcher) handleRevokePermission(caller domain.User, cmd RevokePermissionCommand) (string, error) {
	if cmd.TargetName == "" {
		return "Whose access should I revoke?", nil
	}
	if cmd.Kind == "" {
		return "Which access: location, eta, contacts, or lists?", nil
	}
	target, found, err := d.resolveUser(cmd.TargetName)
	if err != nil {
		return "", err
	}
	if !found {
		return d.fmt.Text(fmt.Sprintf("I don't know anyone named %q.", cmd.TargetName)), nil
	}
	if err := d.guard.Revoke(caller.ID, target.ID, cmd.Kind); err != nil {
		return "", err
	}
	return d.fmt.Text(fmt.Sprintf("%s can no longer see your %s.", target.Name, cmd.Kind)), nil
}

// editableList resolves a list reference and checks edit access. A non-empty
// reply means the operation should stop with that user-facing message.
func (d *Dispatcher) editableList(caller domain.User, nameOrType string) (domain.List, string, error) {
	list, ok, err := d.lists.ResolveList(caller.ID, nameOrType)
	if err != nil {
		return domain.List{}, "", err
	}
	if !ok {
		return domain.List{}, d.fmt.Text(fmt.Sprintf("I couldn't find a list matching %q.", nameOrType)), nil
	}
	allowed, err := d.lists.HasAccess(list, caller.ID, true)
	if err != nil {
		return domain.List{}, "", err
	}
	if !allowed {
		return domain.List{}, d.fmt.Text(fmt.Sprintf("You can't edit %s.", list.Name)), nil
	}
	return list, "", nil
}

// targetOrSelf resolves the named user, defaulting to the caller when no
// name was extracted. A non-empty reply means the name matched nobody.
func (d *Dispatcher) targetOrSelf(caller domain.User, name string) (domain.User, string, error) {
	if name == "" {
		return caller, "", nil
	}
	target, found, err := d.resolveUser(name)
	if err != nil {
		return domain.User{}, "", err
	}
	if !found {
		return domain.User{}, d.fmt.Text(fmt.Sprintf("I don't know anyone named %q.", name)), nil
	}
	return target, "", nil
}
