package telephony

import (
	"bytes"
	"encoding/xml"
)

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
}

// RenderEmptyTwiML returns the acknowledgement body for status callbacks.
// Twilio only needs a 2xx; an empty <Response/> keeps its debugger quiet.
func RenderEmptyTwiML() (string, error) {
	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	enc := xml.NewEncoder(&buf)
	if err := enc.Encode(twimlResponse{}); err != nil {
		return "", err
	}
	if err := enc.Flush(); err != nil {
		return "", err
	}
	return buf.String(), nil
}
