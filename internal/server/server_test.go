package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sort"
	"strings"
	"testing"

	"homeline/internal/contacts"
	"homeline/internal/dispatch"
	"homeline/internal/guard"
	"homeline/internal/lists"
	"homeline/internal/pipeline"
	"homeline/internal/trips"
	"homeline/pkg/classify"
	"homeline/pkg/domain"
	"homeline/pkg/geo"
	"homeline/pkg/sms"
	"homeline/pkg/store"
)

type fixedClassifier struct{ res classify.Result }

func (f fixedClassifier) Classify(_ context.Context, req classify.Request) classify.Result {
	res := f.res
	res.RawMessage = req.Text
	if res.Entities == nil {
		res.Entities = map[string]string{}
	}
	return res
}

type recordingSender struct{ sent []string }

func (r *recordingSender) Send(_ context.Context, _, body string) (sms.SendResult, error) {
	r.sent = append(r.sent, body)
	return sms.SendResult{MessageSID: "SM1", Status: "queued"}, nil
}

type noGeocoder struct{}

func (noGeocoder) Geocode(context.Context, string) (domain.Place, bool, error) {
	return domain.Place{}, false, nil
}

func newTestServer(t *testing.T, authToken string, res classify.Result) (*Server, *store.MemoryStore, *recordingSender) {
	t.Helper()
	st := store.NewMemoryStore()
	if err := st.SaveUser(domain.User{ID: "u-alex", Name: "Alex", PhoneNumber: "+15550000002"}); err != nil {
		t.Fatalf("save user: %v", err)
	}
	sender := &recordingSender{}
	var router geo.Router
	d := dispatch.New(dispatch.Config{
		Users:    st,
		Guard:    guard.New(st),
		Lists:    lists.New(st),
		Trips:    trips.New(st, noGeocoder{}, router),
		Contacts: contacts.New(st),
	})
	p := pipeline.New(pipeline.Config{
		Store:      st,
		Classifier: fixedClassifier{res: res},
		Dispatcher: d,
		Sender:     sender,
	})
	return New(Config{
		Pipeline:      p,
		AuthToken:     authToken,
		PublicBaseURL: "https://sms.example.com",
	}), st, sender
}

func postForm(t *testing.T, srv *Server, form url.Values, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if signature != "" {
		req.Header.Set("X-Twilio-Signature", signature)
	}
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	return rec
}

func signForm(authToken, requestURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for k := range form {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(requestURL))
	for _, k := range keys {
		for _, v := range form[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func inboundForm() url.Values {
	form := url.Values{}
	form.Set("From", "+15550000002")
	form.Set("To", "+15559999999")
	form.Set("Body", "add milk")
	form.Set("MessageSid", "SMin1")
	return form
}

func TestWebhookProcessesMessage(t *testing.T) {
	srv, st, sender := newTestServer(t, "", classify.Result{
		Intent:     classify.IntentAddListItem,
		Confidence: 0.9,
		Entities:   map[string]string{classify.EntityListItem: "milk"},
	})

	rec := postForm(t, srv, inboundForm(), "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/xml" {
		t.Fatalf("content type = %q", ct)
	}
	if !strings.Contains(rec.Body.String(), "<Response></Response>") {
		t.Fatalf("expected empty TwiML, got %q", rec.Body.String())
	}
	if len(sender.sent) != 1 || sender.sent[0] != "Added milk to Grocery." {
		t.Fatalf("reply not sent via provider: %v", sender.sent)
	}
	if logs := st.MessageLogs(); len(logs) != 2 {
		t.Fatalf("expected 2 audit rows, got %d", len(logs))
	}
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	srv, _, sender := newTestServer(t, "auth-token", classify.Result{Intent: classify.IntentHelp})

	rec := postForm(t, srv, inboundForm(), "bogus-signature")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	if len(sender.sent) != 0 {
		t.Fatalf("nothing should be processed: %v", sender.sent)
	}
}

func TestWebhookAcceptsValidSignature(t *testing.T) {
	srv, _, sender := newTestServer(t, "auth-token", classify.Result{Intent: classify.IntentHelp})

	form := inboundForm()
	sig := signForm("auth-token", "https://sms.example.com/webhook/sms", form)
	rec := postForm(t, srv, form, sig)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if len(sender.sent) != 1 {
		t.Fatalf("expected one reply, got %v", sender.sent)
	}
}

func TestWebhookRequiresFromAndBody(t *testing.T) {
	srv, _, _ := newTestServer(t, "", classify.Result{Intent: classify.IntentHelp})

	form := inboundForm()
	form.Del("From")
	if rec := postForm(t, srv, form, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing From: status = %d, want 400", rec.Code)
	}

	form = inboundForm()
	form.Del("Body")
	if rec := postForm(t, srv, form, ""); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing Body: status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	srv, _, _ := newTestServer(t, "", classify.Result{Intent: classify.IntentHelp})
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}
