package tropo

import (
	"encoding/json"
	"io"

	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/switchboard/pkg/domain/types"
)

// maxSessionBytes bounds the inbound session document
const maxSessionBytes = 1 << 20

// Endpoint is a party of a Tropo session
type Endpoint struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Channel string `json:"channel"`
	Network string `json:"network"`
}

// Session is the WebAPI document Tropo posts when a call or text arrives
type Session struct {
	ID          string   `json:"id"`
	AccountID   string   `json:"accountId"`
	CallID      string   `json:"callId"`
	InitialText string   `json:"initialText"`
	From        Endpoint `json:"from"`
	To          Endpoint `json:"to"`
}

// CustomerID returns the sender of the session as a customer ID
func (s *Session) CustomerID() (types.CustomerID, error) {
	id, err := types.NewCustomerID(s.From.ID)
	if err != nil {
		return "", goerr.Wrap(err, "invalid session sender", goerr.V("session_id", s.ID))
	}
	return id, nil
}

// ParseSession decodes a Tropo WebAPI session document
func ParseSession(r io.Reader) (*Session, error) {
	var doc struct {
		Session *Session `json:"session"`
	}
	if err := json.NewDecoder(io.LimitReader(r, maxSessionBytes)).Decode(&doc); err != nil {
		return nil, goerr.Wrap(err, "failed to decode tropo session")
	}
	if doc.Session == nil {
		return nil, goerr.New("tropo session is missing")
	}
	if doc.Session.InitialText == "" {
		return nil, goerr.New("tropo session has no text", goerr.V("session_id", doc.Session.ID))
	}
	return doc.Session, nil
}

// Say speaks or texts a phrase back to the caller
type Say struct {
	Value string `json:"value"`
}

// Action is one verb of a WebAPI response document
type Action struct {
	Say *Say `json:"say,omitempty"`
}

// Response is a WebAPI response document
type Response struct {
	Tropo []Action `json:"tropo"`
}

// NewSayResponse returns a document answering the session with phrase
func NewSayResponse(phrase string) *Response {
	return &Response{
		Tropo: []Action{{Say: &Say{Value: phrase}}},
	}
}

// Render encodes the document as JSON
func (r *Response) Render() []byte {
	// Only strings are encoded, so marshaling cannot fail
	data, _ := json.Marshal(r)
	return data
}
