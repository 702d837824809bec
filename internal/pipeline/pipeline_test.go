package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"homeline/internal/contacts"
	"homeline/internal/dispatch"
	"homeline/internal/guard"
	"homeline/internal/lists"
	"homeline/internal/trips"
	"homeline/pkg/classify"
	"homeline/pkg/domain"
	"homeline/pkg/geo"
	"homeline/pkg/sms"
	"homeline/pkg/store"
)

type countingClassifier struct {
	calls int
	res   classify.Result
}

func (c *countingClassifier) Classify(_ context.Context, req classify.Request) classify.Result {
	c.calls++
	res := c.res
	res.RawMessage = req.Text
	if res.Entities == nil {
		res.Entities = map[string]string{}
	}
	return res
}

type fakeSender struct {
	sent []string
	err  error
}

func (f *fakeSender) Send(_ context.Context, _, body string) (sms.SendResult, error) {
	if f.err != nil {
		return sms.SendResult{}, f.err
	}
	f.sent = append(f.sent, body)
	return sms.SendResult{MessageSID: "SM123", Status: "queued"}, nil
}

type nullGeocoder struct{}

func (nullGeocoder) Geocode(context.Context, string) (domain.Place, bool, error) {
	return domain.Place{}, false, nil
}

type nullRouter struct{}

func (nullRouter) Route(context.Context, geo.LatLng, geo.LatLng, time.Time) (domain.Route, bool, error) {
	return domain.Route{}, false, nil
}

func newPipeline(st *store.MemoryStore, cl Classifier, sender sms.Sender) *Pipeline {
	d := dispatch.New(dispatch.Config{
		Users:    st,
		Guard:    guard.New(st),
		Lists:    lists.New(st),
		Trips:    trips.New(st, nullGeocoder{}, nullRouter{}),
		Contacts: contacts.New(st),
	})
	return New(Config{Store: st, Classifier: cl, Dispatcher: d, Sender: sender})
}

func TestHandleRejectsUnknownNumber(t *testing.T) {
	st := store.NewMemoryStore()
	cl := &countingClassifier{res: classify.Result{Intent: classify.IntentHelp, Confidence: 1}}
	sender := &fakeSender{}
	p := newPipeline(st, cl, sender)

	reply := p.Handle(context.Background(), "+15550000000", "+15559999999", "hi", "SMin1")
	if reply != RejectionReply {
		t.Fatalf("expected rejection reply, got %q", reply)
	}
	if cl.calls != 0 {
		t.Fatalf("classifier must not run for unknown numbers, ran %d times", cl.calls)
	}
	if len(sender.sent) != 1 || sender.sent[0] != RejectionReply {
		t.Fatalf("rejection should still be sent, sent=%v", sender.sent)
	}

	logs := st.MessageLogs()
	if len(logs) != 2 {
		t.Fatalf("expected inbound and outbound audit rows, got %d", len(logs))
	}
	in, out := logs[0], logs[1]
	if in.Direction != domain.DirectionInbound || in.Body != "hi" || in.ProviderMessageID != "SMin1" {
		t.Fatalf("bad inbound row: %+v", in)
	}
	if out.Direction != domain.DirectionOutbound || out.Body != RejectionReply {
		t.Fatalf("bad outbound row: %+v", out)
	}
	if out.ProviderMessageID != "SM123" || out.Status != "queued" {
		t.Fatalf("delivery back-fill missing: %+v", out)
	}
}

func TestHandleClassifiesAndReplies(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveUser(domain.User{ID: "u-alex", Name: "Alex", PhoneNumber: "+15550000002"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	cl := &countingClassifier{res: classify.Result{
		Intent:     classify.IntentAddListItem,
		Confidence: 0.92,
		Entities:   map[string]string{classify.EntityListItem: "milk"},
	}}
	sender := &fakeSender{}
	p := newPipeline(st, cl, sender)

	reply := p.Handle(context.Background(), "+15550000002", "+15559999999", "add milk", "SMin2")
	if reply != "Added milk to Grocery." {
		t.Fatalf("unexpected reply: %q", reply)
	}
	if cl.calls != 1 {
		t.Fatalf("expected one classification, got %d", cl.calls)
	}
	if len(sender.sent) != 1 || sender.sent[0] != reply {
		t.Fatalf("reply not sent: %v", sender.sent)
	}

	logs := st.MessageLogs()
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(logs))
	}
	in := logs[0]
	if in.Intent != string(classify.IntentAddListItem) || in.Confidence != 0.92 {
		t.Fatalf("intent back-fill missing: %+v", in)
	}
	if in.Entities[classify.EntityListItem] != "milk" {
		t.Fatalf("entities back-fill missing: %+v", in.Entities)
	}
}

func TestHandleMarksFailedSends(t *testing.T) {
	st := store.NewMemoryStore()
	if err := st.SaveUser(domain.User{ID: "u-alex", Name: "Alex", PhoneNumber: "+15550000002"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	cl := &countingClassifier{res: classify.Result{Intent: classify.IntentUnknown}}
	sender := &fakeSender{err: errors.New("provider down")}
	p := newPipeline(st, cl, sender)

	reply := p.Handle(context.Background(), "+15550000002", "+15559999999", "hello", "SMin3")
	if reply == "" {
		t.Fatal("a reply is always produced even if sending fails")
	}

	logs := st.MessageLogs()
	if len(logs) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(logs))
	}
	out := logs[1]
	if out.Status != "failed" || out.ProviderMessageID != "" {
		t.Fatalf("failed send should be recorded: %+v", out)
	}
}
