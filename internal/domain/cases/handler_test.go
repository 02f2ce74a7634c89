package cases

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ems/casebook/internal/domain/bodymap"
	"github.com/ems/casebook/internal/platform/auth"
	"github.com/ems/casebook/internal/session"
	"github.com/ems/casebook/pkg/pagination"
)

func newRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	return req.WithContext(auth.WithIdentity(req.Context(), auth.DevIdentity))
}

func newTestHandler() (*Handler, *fixture, *session.Registry) {
	f := newFixture()
	reg := session.NewRegistry()
	return NewHandler(f.svc, f.responders, reg), f, reg
}

// countingResolver counts profile lookups and can be told to return a
// fixed id instead of asking the wrapped resolver.
type countingResolver struct {
	inner ResponderResolver
	fixed *uuid.UUID
	calls int
}

func (r *countingResolver) ResponderID(ctx context.Context, subject string) (uuid.UUID, error) {
	r.calls++
	if r.fixed != nil {
		return *r.fixed, nil
	}
	return r.inner.ResponderID(ctx, subject)
}

func formJSON(t *testing.T, form CaseForm) string {
	t.Helper()
	b, err := json.Marshal(form)
	require.NoError(t, err)
	return string(b)
}

func expectStatus(t *testing.T, err error, code int) *echo.HTTPError {
	t.Helper()
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, code, he.Code)
	return he
}

func TestHandler_ListCases_Pages(t *testing.T) {
	h, f, _ := newTestHandler()
	for i := 0; i < 12; i++ {
		seedCase(f, fmt.Sprintf("CASE-%05d", 30000+i), fmt.Sprintf("2025-01-%02d", i+1), uuid.New())
	}
	e := echo.New()

	var sizes []int
	seen := map[string]bool{}
	for page := 1; page <= 3; page++ {
		rec := httptest.NewRecorder()
		target := fmt.Sprintf("/api/v1/cases?status=Active&sort=desc&page=%d", page)
		c := e.NewContext(newRequest(http.MethodGet, target, ""), rec)
		require.NoError(t, h.ListCases(c), "page %d", page)

		var resp struct {
			pagination.Response
			Data []CaseView `json:"data"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		assert.Equal(t, 12, resp.Total)
		assert.Equal(t, 3, resp.Pages)
		if page == 1 {
			assert.Equal(t, "CASE-30011", resp.Data[0].CaseNumber)
		}
		sizes = append(sizes, len(resp.Data))
		for _, v := range resp.Data {
			seen[v.CaseNumber] = true
		}
	}
	assert.Equal(t, []int{5, 5, 2}, sizes)
	assert.Len(t, seen, 12)
}

func TestHandler_ListCases_PageSizeIsFixed(t *testing.T) {
	h, f, _ := newTestHandler()
	for i := 0; i < 12; i++ {
		seedCase(f, fmt.Sprintf("CASE-%05d", 34000+i), fmt.Sprintf("2025-02-%02d", i+1), uuid.New())
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodGet, "/api/v1/cases?page_size=50", ""), rec)
	require.NoError(t, h.ListCases(c))

	var resp struct {
		pagination.Response
		Data []CaseView `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Data, 5)
	assert.Equal(t, 5, resp.PageSize)
	assert.Equal(t, 3, resp.Pages)
}

func TestHandler_ListCases_BadFilter(t *testing.T) {
	h, _, _ := newTestHandler()
	e := echo.New()
	for _, q := range []string{"status=Lost", "severity=Grave", "sort=sideways"} {
		c := e.NewContext(newRequest(http.MethodGet, "/api/v1/cases?"+q, ""), httptest.NewRecorder())
		expectStatus(t, h.ListCases(c), http.StatusBadRequest)
	}
}

func TestHandler_CreateCase(t *testing.T) {
	h, f, reg := newTestHandler()
	f.responders.add(auth.DevIdentity.Subject, "Ana", "Reyes")
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, validForm())), rec)

	require.NoError(t, h.CreateCase(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var v CaseView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	assert.NotEmpty(t, v.CaseNumber)
	assert.Len(t, v.Injuries, 1)

	hd := reg.For(auth.DevIdentity.Subject)
	assert.Equal(t, v.CaseNumber, hd.CaseNumber())
	assert.NotEqual(t, uuid.Nil, hd.ResponderID(), "responder id cached in session")
}

func TestHandler_CreateCase_UsesDraft(t *testing.T) {
	h, f, reg := newTestHandler()
	f.responders.add(auth.DevIdentity.Subject, "Ana", "Reyes")
	hd := reg.For(auth.DevIdentity.Subject)
	err := hd.WithDraft(func(ed *bodymap.Editor) error {
		if _, err := ed.AddAt(50, 10, bodymap.Front, bodymap.Fracture, bodymap.Severe); err != nil {
			return err
		}
		_, err := ed.AddAt(50, 45, bodymap.Front, bodymap.Contusion, bodymap.Mild)
		return err
	})
	require.NoError(t, err)

	form := validForm()
	form.Injuries = nil
	form.UseDraft = true
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, form)), httptest.NewRecorder())

	require.NoError(t, h.CreateCase(c))
	assert.Len(t, f.injuries.items, 2)
	assert.Empty(t, hd.DraftInjuries(), "draft cleared after submit")
}

func TestHandler_CreateCase_EmptyDraftRejected(t *testing.T) {
	h, f, _ := newTestHandler()
	f.responders.add(auth.DevIdentity.Subject, "Ana", "Reyes")
	form := validForm()
	form.UseDraft = true
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, form)), httptest.NewRecorder())

	expectStatus(t, h.CreateCase(c), http.StatusUnprocessableEntity)
	assert.Zero(t, f.cases.calls)
}

func TestHandler_CreateCase_Invalid(t *testing.T) {
	h, f, _ := newTestHandler()
	f.responders.add(auth.DevIdentity.Subject, "Ana", "Reyes")
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", `{"first_name":"Maria"}`), httptest.NewRecorder())

	he := expectStatus(t, h.CreateCase(c), http.StatusUnprocessableEntity)
	body, err := json.Marshal(he.Message)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Need to specify injury")
}

func TestHandler_CreateCase_ValidatesBeforeResponderLookup(t *testing.T) {
	f := newFixture()
	resolver := &countingResolver{inner: f.responders}
	h := NewHandler(f.svc, resolver, session.NewRegistry())

	form := validForm()
	form.Injuries = nil
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, form)), httptest.NewRecorder())

	he := expectStatus(t, h.CreateCase(c), http.StatusUnprocessableEntity)
	body, err := json.Marshal(he.Message)
	require.NoError(t, err)
	assert.Contains(t, string(body), "Need to specify injury")
	assert.Zero(t, resolver.calls, "no profile lookup for an invalid form")
	assert.Zero(t, f.cases.calls)
}

func TestHandler_CreateCase_NotProvisioned(t *testing.T) {
	h, _, _ := newTestHandler()
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, validForm())), httptest.NewRecorder())
	expectStatus(t, h.CreateCase(c), http.StatusForbidden)
}

func TestHandler_CreateCase_EmptyResponderID(t *testing.T) {
	f := newFixture()
	empty := uuid.Nil
	reg := session.NewRegistry()
	h := NewHandler(f.svc, &countingResolver{fixed: &empty}, reg)
	c := echo.New().NewContext(newRequest(http.MethodPost, "/api/v1/cases", formJSON(t, validForm())), httptest.NewRecorder())

	expectStatus(t, h.CreateCase(c), http.StatusInternalServerError)
	assert.Equal(t, uuid.Nil, reg.For(auth.DevIdentity.Subject).ResponderID())
	assert.Zero(t, f.cases.calls)
}

func TestHandler_GetCase(t *testing.T) {
	h, f, reg := newTestHandler()
	rid := f.responders.add("auth0|other", "Ana", "Reyes")
	seedCase(f, "CASE-31001", "2025-03-04", rid, bodymap.Moderate)
	e := echo.New()

	rec := httptest.NewRecorder()
	c := e.NewContext(newRequest(http.MethodGet, "/api/v1/cases/CASE-31001", ""), rec)
	c.SetParamNames("case_number")
	c.SetParamValues("CASE-31001")
	require.NoError(t, h.GetCase(c))

	var d CaseDetailsView
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	require.NotNil(t, d.Responder)
	assert.Equal(t, "Ana", d.Responder.FirstName)
	assert.Equal(t, "CASE-31001", reg.For(auth.DevIdentity.Subject).CaseNumber())

	c = e.NewContext(newRequest(http.MethodGet, "/api/v1/cases/CASE-00404", ""), httptest.NewRecorder())
	c.SetParamNames("case_number")
	c.SetParamValues("CASE-00404")
	expectStatus(t, h.GetCase(c), http.StatusNotFound)
}

func TestHandler_UpdateStatus(t *testing.T) {
	h, f, _ := newTestHandler()
	seedCase(f, "CASE-32001", "2025-03-04", uuid.New())
	e := echo.New()

	c := e.NewContext(newRequest(http.MethodPatch, "/api/v1/cases/CASE-32001/status", `{"status":"Closed"}`), httptest.NewRecorder())
	c.SetParamNames("case_number")
	c.SetParamValues("CASE-32001")
	require.NoError(t, h.UpdateStatus(c))
	assert.Equal(t, Closed, f.cases.store["CASE-32001"].Status)

	c = e.NewContext(newRequest(http.MethodPatch, "/api/v1/cases/CASE-32001/status", `{"status":"Gone"}`), httptest.NewRecorder())
	c.SetParamNames("case_number")
	c.SetParamValues("CASE-32001")
	expectStatus(t, h.UpdateStatus(c), http.StatusBadRequest)
}

func TestHandler_MapCases(t *testing.T) {
	h, f, _ := newTestHandler()
	seedCase(f, "CASE-33001", "2025-03-04", uuid.New(), bodymap.Mild)
	lat, lon := 10.3, 123.9
	f.cases.store["CASE-33001"].Latitude = &lat
	f.cases.store["CASE-33001"].Longitude = &lon
	seedCase(f, "CASE-33002", "2025-03-04", uuid.New(), bodymap.Mild)

	rec := httptest.NewRecorder()
	c := echo.New().NewContext(newRequest(http.MethodGet, "/api/v1/map/cases?severity=Mild", ""), rec)
	require.NoError(t, h.MapCases(c))

	var markers []MapMarker
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &markers))
	require.Len(t, markers, 1)
	assert.Equal(t, "CASE-33001", markers[0].CaseNumber)
}
