package intent

import (
	"encoding/json"
	"errors"
	"regexp"
	"strconv"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

var (
	fenceOpen  = regexp.MustCompile("^```\\w*\\n?")
	fenceClose = regexp.MustCompile("\\n?```$")

	errNoObject = errors.New("no JSON object in reply")
)

// wireIntent is the JSON shape the NLU is asked to produce.
type wireIntent struct {
	Intencion            string       `json:"intencion"`
	Confianza            flexNumber   `json:"confianza"`
	Entidades            wireEntities `json:"entidades"`
	RequiereConfirmacion bool         `json:"requiere_confirmacion"`
	MensajeAclaracion    string       `json:"mensaje_aclaracion"`
}

type wireEntities struct {
	Titulo           string      `json:"titulo"`
	Fecha            string      `json:"fecha"`
	Hora             string      `json:"hora"`
	DuracionMinutos  flexNumber  `json:"duracion_minutos"`
	Participantes    flexStrings `json:"participantes"`
	Ubicacion        string      `json:"ubicacion"`
	EventoReferencia string      `json:"evento_referencia"`
}

// flexNumber accepts a JSON number or a numeric string. Anything else is
// treated as absent.
type flexNumber float64

func (n *flexNumber) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
		*n = flexNumber(f)
	}
	return nil
}

// flexStrings accepts a list of strings or a single string.
type flexStrings []string

func (s *flexStrings) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err == nil {
		*s = list
		return nil
	}
	var one string
	if err := json.Unmarshal(b, &one); err == nil && strings.TrimSpace(one) != "" {
		*s = []string{one}
	}
	return nil
}

// decodeReply parses the NLU reply. The reply may be fenced; when it is not
// valid JSON the first balanced object in it is parsed instead, repairing
// near-JSON (trailing commas, single quotes) on the way. fallback reports
// whether that recovery path was taken.
func decodeReply(reply string) (w *wireIntent, fallback bool, err error) {
	w = &wireIntent{}
	if err = json.Unmarshal([]byte(stripFence(reply)), w); err == nil {
		return w, false, nil
	}

	span, ok := firstObject(reply)
	if !ok {
		return nil, true, errNoObject
	}
	w = &wireIntent{}
	if err = json.Unmarshal([]byte(span), w); err == nil {
		return w, true, nil
	}
	repaired, err := jsonrepair.JSONRepair(span)
	if err != nil {
		return nil, true, err
	}
	w = &wireIntent{}
	if err = json.Unmarshal([]byte(repaired), w); err != nil {
		return nil, true, err
	}
	return w, true, nil
}

func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = fenceOpen.ReplaceAllString(s, "")
		s = fenceClose.ReplaceAllString(s, "")
	}
	return strings.TrimSpace(s)
}

// firstObject returns the first balanced {...} span in s, ignoring braces
// inside string literals. An object that never closes is returned up to the
// end of s so the repair step can try to close it.
func firstObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}

	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return s[start:], true
}
