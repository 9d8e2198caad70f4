package beacon

import (
	"fmt"
	"net/http"
	"strconv"
)

// HeaderScheme names the request headers a collector expects.
type HeaderScheme struct {
	Name        string
	Type        string
	User        string
	Session     string
	Content     string
	PageSeconds string
	Scrolled    string
}

// SchemePlain uses unprefixed header names.
var SchemePlain = HeaderScheme{
	Name:        "plain",
	Type:        "TYPE",
	User:        "USR",
	Session:     "SESS",
	Content:     "CID",
	PageSeconds: "PAGE_SECONDS",
	Scrolled:    "SCROLLED",
}

// SchemePrefixed uses X_ prefixed header names.
var SchemePrefixed = HeaderScheme{
	Name:        "prefixed",
	Type:        "X_TYPE",
	User:        "X_USR",
	Session:     "X_SESS",
	Content:     "X_CID",
	PageSeconds: "X_PAGE_SECONDS",
	Scrolled:    "X_SCROLLED",
}

// ParseScheme returns the scheme registered under name.
func ParseScheme(name string) (HeaderScheme, error) {
	switch name {
	case SchemePlain.Name:
		return SchemePlain, nil
	case SchemePrefixed.Name:
		return SchemePrefixed, nil
	default:
		return HeaderScheme{}, fmt.Errorf("%w: %q", ErrUnknownScheme, name)
	}
}

// Apply writes sig into h. Header names are set verbatim, bypassing
// canonicalization, so "X_USR" goes out as "X_USR" and not "X_usr".
func (s HeaderScheme) Apply(h http.Header, sig Signal, extended bool) {
	h[s.Type] = []string{sig.Kind.String()}
	h[s.User] = []string{strconv.FormatUint(uint64(sig.DeviceID), 10)}
	h[s.Session] = []string{strconv.FormatUint(uint64(sig.SessionID), 10)}
	h[s.Content] = []string{strconv.FormatUint(uint64(sig.ContentID), 10)}

	if !extended {
		return
	}
	if sig.Kind == KindTime && sig.PageSeconds != nil {
		h[s.PageSeconds] = []string{strconv.FormatUint(uint64(*sig.PageSeconds), 10)}
	}
	if sig.Kind == KindUnload && sig.Scrolled != nil {
		h[s.Scrolled] = []string{strconv.FormatFloat(float64(*sig.Scrolled), 'f', -1, 32)}
	}
}

// Read parses a signal from h. It is the inverse of Apply and is meant for
// tests and tooling that inspect recorded beacons.
func (s HeaderScheme) Read(h http.Header) (Signal, error) {
	kind, err := ParseKind(headerValue(h, s.Type))
	if err != nil {
		return Signal{}, err
	}
	sig := Signal{Kind: kind}

	fields := []struct {
		name string
		dst  *uint32
	}{
		{s.User, &sig.DeviceID},
		{s.Session, &sig.SessionID},
		{s.Content, &sig.ContentID},
	}
	for _, f := range fields {
		v, err := strconv.ParseUint(headerValue(h, f.name), 10, 32)
		if err != nil {
			return Signal{}, fmt.Errorf("parse uint32 in header %s: %w", f.name, err)
		}
		*f.dst = uint32(v)
	}

	if raw := headerValue(h, s.PageSeconds); raw != "" {
		v, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			return Signal{}, fmt.Errorf("parse uint32 in header %s: %w", s.PageSeconds, err)
		}
		secs := uint32(v)
		sig.PageSeconds = &secs
	}
	if raw := headerValue(h, s.Scrolled); raw != "" {
		v, err := strconv.ParseFloat(raw, 32)
		if err != nil {
			return Signal{}, fmt.Errorf("parse float in header %s: %w", s.Scrolled, err)
		}
		scrolled := float32(v)
		sig.Scrolled = &scrolled
	}
	return sig, nil
}

// headerValue looks name up verbatim first, then canonicalized, so it works
// on both outgoing headers built by Apply and headers parsed by net/http.
func headerValue(h http.Header, name string) string {
	if v := h[name]; len(v) > 0 {
		return v[0]
	}
	return h.Get(name)
}
