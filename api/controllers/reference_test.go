package controllers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dagym/contract-backend/internal/plans"
	"github.com/dagym/contract-backend/internal/signing"
)

func decodeData(t *testing.T, rec *httptest.ResponseRecorder) map[string]json.RawMessage {
	t.Helper()
	var envelope struct {
		Data map[string]json.RawMessage `json:"data"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Data
}

func TestReferenceListsOptions(t *testing.T) {
	rec := httptest.NewRecorder()
	Reference().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/reference", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	for _, key := range []string{"banks", "businessTypes", "sendMethods", "paymentMethods", "billingCycles", "contractStatuses", "formSteps", "uploadLimits"} {
		assert.Contains(t, data, key)
	}

	var steps []map[string]any
	require.NoError(t, json.Unmarshal(data["formSteps"], &steps))
	assert.Len(t, steps, 5)
}

func TestPlanCatalogIncludesMode(t *testing.T) {
	rec := httptest.NewRecorder()
	PlanCatalog(plans.MustDefaultCatalog(), plans.PartnerModeAuto).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	data := decodeData(t, rec)
	assert.JSONEq(t, `"auto"`, string(data["partnerMode"]))

	var listed []map[string]any
	require.NoError(t, json.Unmarshal(data["plans"], &listed))
	assert.NotEmpty(t, listed)
}

func TestPlanCatalogWithoutCatalog(t *testing.T) {
	rec := httptest.NewRecorder()
	PlanCatalog(nil, plans.PartnerModeManual).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/plans", nil))

	data := decodeData(t, rec)
	assert.JSONEq(t, `[]`, string(data["plans"]))
}

func TestTermsListsCatalog(t *testing.T) {
	catalog := signing.DefaultCatalog()
	rec := httptest.NewRecorder()
	Terms(catalog).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/terms", nil))

	data := decodeData(t, rec)
	var terms []signing.Term
	require.NoError(t, json.Unmarshal(data["terms"], &terms))
	assert.Len(t, terms, len(catalog.Terms()))
}
