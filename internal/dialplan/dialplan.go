// Package dialplan renders the TwiML document the provider fetches once the user answers.
package dialplan

import (
	"encoding/xml"
	"strings"
)

// ContentType is the media type of a rendered document.
const ContentType = "text/xml; charset=utf-8"

const (
	defaultTimeout = 20
	defaultVoice   = "alice"
)

// Response is the TwiML root element.
type Response struct {
	XMLName xml.Name `xml:"Response"`
	Dial    *Dial    `xml:"Dial,omitempty"`
	Say     *Say     `xml:"Say,omitempty"`
}

// Dial bridges the live leg to Number.
type Dial struct {
	CallerID string `xml:"callerId,attr"`
	Timeout  int    `xml:"timeout,attr,omitempty"`
	Number   string `xml:",chardata"`
}

// Say speaks Text to the caller.
type Say struct {
	Voice string `xml:"voice,attr,omitempty"`
	Text  string `xml:",chardata"`
}

// Builder holds the static parts of the dialplan.
type Builder struct {
	CallerID string
	// Timeout is the ring timeout in seconds; zero means 20.
	Timeout int
	// Fallback is spoken when no target is given.
	Fallback string
}

// Build returns the document for target: a Dial when target is set, otherwise the fallback message.
func (b Builder) Build(target string) *Response {
	target = strings.TrimSpace(target)
	if target == "" {
		return &Response{Say: &Say{Voice: defaultVoice, Text: b.Fallback}}
	}
	timeout := b.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Response{Dial: &Dial{CallerID: b.CallerID, Timeout: timeout, Number: target}}
}

// Render marshals the document for target with the XML declaration first.
func (b Builder) Render(target string) ([]byte, error) {
	out, err := xml.Marshal(b.Build(target))
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), out...), nil
}
