package app

import (
	"net/url"

	"github.com/casaverde/rewards-api/internal/domain"
)

const (
	resumeUnitParam  = "unit_id"
	resumeBuyerParam = "buyer_ref"
)

// ResumeState is the context a client must carry across the external
// payment redirect, which destroys all of its in-memory state. Encoded
// into the return URL before leaving, parsed on the way back, and fed
// into a fresh Create with the same agent identity, which the lease
// protocol treats as a re-entrant claim rather than a competitor.
type ResumeState struct {
	UnitID   string
	BuyerRef string
}

// Query encodes the state as return-URL query parameters.
func (s ResumeState) Query() url.Values {
	v := url.Values{}
	v.Set(resumeUnitParam, s.UnitID)
	v.Set(resumeBuyerParam, s.BuyerRef)
	return v
}

// ParseResumeState reconstructs the state from return-URL parameters.
func ParseResumeState(v url.Values) (ResumeState, error) {
	st := ResumeState{
		UnitID:   v.Get(resumeUnitParam),
		BuyerRef: v.Get(resumeBuyerParam),
	}
	if st.UnitID == "" {
		return ResumeState{}, domain.ErrUnitNotFound
	}
	if st.BuyerRef == "" {
		return ResumeState{}, domain.ErrBuyerRefRequired
	}
	return st, nil
}

// BuildReturnURL appends the resume parameters to the payment
// provider's return URL, preserving any existing query.
func BuildReturnURL(base string, st ResumeState) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for k, vals := range st.Query() {
		for _, val := range vals {
			q.Set(k, val)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}
