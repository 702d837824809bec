package sms

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"net/url"
	"testing"
)

func sign(authToken, requestURL string, form url.Values) string {
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte(requestURL))
	// Keys in sorted order, each followed by its value.
	for _, k := range []string{"Body", "From", "MessageSid", "To"} {
		for _, v := range form[k] {
			mac.Write([]byte(k))
			mac.Write([]byte(v))
		}
	}
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestValidateSignature(t *testing.T) {
	form := url.Values{}
	form.Set("From", "+15550000002")
	form.Set("To", "+15559999999")
	form.Set("Body", "add milk")
	form.Set("MessageSid", "SM123")
	requestURL := "https://sms.example.com/webhook/sms"
	token := "auth-token"

	good := sign(token, requestURL, form)
	if !ValidateSignature(token, requestURL, form, good) {
		t.Fatal("valid signature rejected")
	}
	if ValidateSignature(token, requestURL, form, good+"x") {
		t.Fatal("tampered signature accepted")
	}
	if ValidateSignature("other-token", requestURL, form, good) {
		t.Fatal("wrong token accepted")
	}
	if ValidateSignature(token, "https://evil.example.com/webhook/sms", form, good) {
		t.Fatal("different URL accepted")
	}

	tampered := url.Values{}
	for k, vs := range form {
		tampered[k] = vs
	}
	tampered.Set("Body", "send money")
	if ValidateSignature(token, requestURL, tampered, good) {
		t.Fatal("tampered form accepted")
	}
}

func TestValidateSignatureEmptyForm(t *testing.T) {
	requestURL := "https://sms.example.com/webhook/sms"
	token := "auth-token"
	good := sign(token, requestURL, url.Values{})
	if !ValidateSignature(token, requestURL, url.Values{}, good) {
		t.Fatal("empty-form signature rejected")
	}
	if ValidateSignature(token, requestURL, url.Values{}, "") {
		t.Fatal("empty signature accepted")
	}
}
