package classify

import (
	"context"
	"log/slog"
	"time"
)

// Intent is the closed label set produced by classification. Labels outside
// this set route to the dispatcher fallback.
type Intent string

const (
	IntentHelp             Intent = "help"
	IntentAddContact       Intent = "add_contact"
	IntentFindContact      Intent = "find_contact"
	IntentListContacts     Intent = "list_contacts"
	IntentAddListItem      Intent = "add_list_item"
	IntentRemoveListItem   Intent = "remove_list_item"
	IntentCompleteListItem Intent = "complete_list_item"
	IntentShowList         Intent = "show_list"
	IntentShareList        Intent = "share_list"
	IntentUpdateLocation   Intent = "update_location"
	IntentWhereIs          Intent = "where_is"
	IntentStartTrip        Intent = "start_trip"
	IntentCancelTrip       Intent = "cancel_trip"
	IntentETA              Intent = "eta"
	IntentGrantPermission  Intent = "grant_permission"
	IntentRevokePermission Intent = "revoke_permission"
	IntentUnknown          Intent = "unknown"
)

// Entity keys the classifier may populate.
const (
	EntityContactName  = "contactName"
	EntityContactPhone = "contactPhone"
	EntityListName     = "listName"
	EntityListItem     = "listItem"
	EntityQuantity     = "quantity"
	EntityLocation     = "location"
	EntityDestination  = "destination"
	EntityDuration     = "duration"
	EntityTargetName   = "targetName"
	EntityPermission   = "permissionKind"
)

// Request carries the raw message plus caller context into classification.
type Request struct {
	Text        string
	SenderName  string
	SenderPhone string
}

// Result is the classification outcome. Confidence is informational only;
// no caller gates behavior on it.
type Result struct {
	Intent     Intent            `json:"intent"`
	Confidence float64           `json:"confidence"`
	Entities   map[string]string `json:"entities"`
	RawMessage string            `json:"rawMessage"`
}

// Classifier turns a raw message into an intent with extracted entities.
// Implementations may fail; SafeClassifier absorbs those failures.
type Classifier interface {
	Classify(ctx context.Context, req Request) (Result, error)
}

// Unknown is the degraded result returned when classification fails.
func Unknown(raw string) Result {
	return Result{
		Intent:     IntentUnknown,
		Confidence: 0,
		Entities:   map[string]string{},
		RawMessage: raw,
	}
}

// SafeClassifier wraps a Classifier so that failures, timeouts, and garbage
// output degrade to an UNKNOWN result instead of an error.
type SafeClassifier struct {
	Inner   Classifier
	Timeout time.Duration
}

// Classify never fails: any error from the inner classifier becomes a
// low-confidence UNKNOWN result.
func (s SafeClassifier) Classify(ctx context.Context, req Request) Result {
	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	res, err := s.Inner.Classify(ctx, req)
	if err != nil {
		slog.Warn("classification failed, degrading to unknown", "err", err)
		return Unknown(req.Text)
	}
	if res.Entities == nil {
		res.Entities = map[string]string{}
	}
	if res.Intent == "" {
		res.Intent = IntentUnknown
	}
	if res.Confidence < 0 {
		res.Confidence = 0
	}
	if res.Confidence > 1 {
		res.Confidence = 1
	}
	res.RawMessage = req.Text
	return res
}
