package classify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

const defaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"

const systemPrompt = `You classify SMS messages sent to a household assistant.
Reply with a single JSON object and nothing else:
{"intent": "<label>", "confidence": <0..1>, "entities": {<key>: <string>}}
Labels: help, add_contact, find_contact, list_contacts, add_list_item,
remove_list_item, complete_list_item, show_list, share_list, update_location,
where_is, start_trip, cancel_trip, eta, grant_permission, revoke_permission,
unknown.
Entity keys: contactName, contactPhone, listName, listItem, quantity,
location, destination, duration, targetName, permissionKind.
Use "unknown" with confidence 0 when unsure.`

// GeminiClassifier calls a Gemini-style generateContent endpoint and parses
// the constrained JSON reply.
type GeminiClassifier struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// NewGeminiClassifier constructs a classifier with the provided API key and
// model. baseURL is optional and defaults to the public endpoint.
func NewGeminiClassifier(apiKey, model, baseURL string) (*GeminiClassifier, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("classifier api key required")
	}
	model = strings.TrimSpace(model)
	if model == "" {
		return nil, fmt.Errorf("classifier model required")
	}
	if strings.TrimSpace(baseURL) == "" {
		baseURL = defaultGeminiBaseURL
	}
	return &GeminiClassifier{
		apiKey:     apiKey,
		model:      model,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Classify sends the message for classification and parses the JSON result.
func (c *GeminiClassifier) Classify(ctx context.Context, req Request) (Result, error) {
	userPrompt := fmt.Sprintf("Sender: %s (%s)\nMessage: %s", req.SenderName, req.SenderPhone, req.Text)
	reqBody := generateRequest{
		Contents: []content{
			{Role: "user", Parts: []part{{Text: userPrompt}}},
		},
		SystemInstruction: &content{Parts: []part{{Text: systemPrompt}}},
	}
	var resp generateResponse
	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, normalizeModel(c.model), c.apiKey)
	if err := c.doJSON(ctx, url, reqBody, &resp); err != nil {
		return Result{}, err
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return Result{}, fmt.Errorf("empty classification response")
	}
	return parseResult(resp.Candidates[0].Content.Parts[0].Text, req.Text)
}

func parseResult(text, raw string) (Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	text = strings.TrimSpace(text)
	var parsed struct {
		Intent     string            `json:"intent"`
		Confidence float64           `json:"confidence"`
		Entities   map[string]string `json:"entities"`
	}
	if err := json.Unmarshal([]byte(text), &parsed); err != nil {
		return Result{}, fmt.Errorf("parse classification output: %w", err)
	}
	return Result{
		Intent:     Intent(strings.ToLower(strings.TrimSpace(parsed.Intent))),
		Confidence: parsed.Confidence,
		Entities:   parsed.Entities,
		RawMessage: raw,
	}, nil
}

func normalizeModel(model string) string {
	model = strings.TrimSpace(model)
	model = strings.TrimPrefix(model, "models/")
	return model
}

func (c *GeminiClassifier) doJSON(ctx context.Context, url string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var errResp errorResponse
		_ = json.NewDecoder(resp.Body).Decode(&errResp)
		if errResp.Error.Message != "" {
			return fmt.Errorf("classifier api error: %s", errResp.Error.Message)
		}
		return fmt.Errorf("classifier api error: %s", resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content `json:"contents"`
	SystemInstruction *content  `json:"systemInstruction,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

type errorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}
