// controller/authz_controller_test.go
package controller_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	tmock "github.com/stretchr/testify/mock"

	"github.com/tea0112/ecm-identity-service-sub001/controller"
	authz_errors "github.com/tea0112/ecm-identity-service-sub001/errors"
	logger "github.com/tea0112/ecm-identity-service-sub001/logging"
	"github.com/tea0112/ecm-identity-service-sub001/middleware"
	"github.com/tea0112/ecm-identity-service-sub001/model"
	pdp_model "github.com/tea0112/ecm-identity-service-sub001/pdp/model"
	"github.com/tea0112/ecm-identity-service-sub001/test/mock"
)

func setupRouter(authzController *controller.AuthzController) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(middleware.Identity())
	api := r.Group("/")
	authzController.RegisterRoutes(api)
	return r
}

func checkRequest(body string) *http.Request {
	req, _ := http.NewRequest("POST", "/authz/check", strings.NewReader(body))
	req.Header.Set("X-Tenant-ID", "tenant-1")
	req.Header.Set("X-Subject-ID", "alice")
	req.Header.Set("X-Session-ID", "session-1")
	return req
}

func TestAuthzController(t *testing.T) {
	logger.InitLogger(t.TempDir())
	defer logger.Sync()

	mockAuthzService := new(mock.MockAuthzService)
	authzController := controller.NewAuthzController(mockAuthzService)
	router := setupRouter(authzController)

	t.Run("Check_Allow", func(t *testing.T) {
		mockAuthzService.On("Evaluate", tmock.Anything, "tenant-1", tmock.Anything).
			Return(&pdp_model.Decision{
				Effect:          model.EffectAllow,
				Reason:          pdp_model.ReasonPolicyMatch,
				MatchedPolicyID: "policy-1",
				ValidUntil:      time.Now().Add(time.Second),
			}, nil).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, checkRequest(`{"resource":"document:x","action":"read"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		var decision pdp_model.Decision
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &decision))
		assert.Equal(t, model.EffectAllow, decision.Effect)
		assert.Equal(t, "policy-1", decision.MatchedPolicyID)
	})

	t.Run("Check_IdentityComesFromHeaders", func(t *testing.T) {
		mockAuthzService.On("Evaluate", tmock.Anything, "tenant-1",
			tmock.MatchedBy(func(request pdp_model.AccessRequest) bool {
				return request.Subject.ID == "alice" && request.Subject.SessionID == "session-1"
			})).
			Return(&pdp_model.Decision{Effect: model.EffectDeny, Reason: pdp_model.ReasonNoMatchingPolicy}, nil).Once()

		// The body claims a different subject; the headers win.
		w := httptest.NewRecorder()
		router.ServeHTTP(w, checkRequest(`{"subject":{"id":"mallory"},"resource":"document:x","action":"read"}`))

		assert.Equal(t, http.StatusOK, w.Code)
		mockAuthzService.AssertExpectations(t)
	})

	t.Run("Check_MissingIdentity", func(t *testing.T) {
		req, _ := http.NewRequest("POST", "/authz/check", strings.NewReader(`{"resource":"x","action":"read"}`))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Check_InvalidBody", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, checkRequest(`not json`))

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Check_TenantNotFound", func(t *testing.T) {
		mockAuthzService.On("Evaluate", tmock.Anything, "tenant-1", tmock.Anything).
			Return(nil, authz_errors.ErrTenantNotFound).Once()

		w := httptest.NewRecorder()
		router.ServeHTTP(w, checkRequest(`{"resource":"document:x","action":"read"}`))

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Batch_PreservesOrder", func(t *testing.T) {
		mockAuthzService.On("EvaluateBatch", tmock.Anything, "tenant-1", tmock.Anything).
			Return([]pdp_model.Decision{
				{Resource: "a", Effect: model.EffectAllow},
				{Resource: "b", Effect: model.EffectDeny},
			}, nil).Once()

		body := `{"requests":[{"resource":"a","action":"read"},{"resource":"b","action":"write"}]}`
		req, _ := http.NewRequest("POST", "/authz/batch", strings.NewReader(body))
		req.Header.Set("X-Tenant-ID", "tenant-1")
		req.Header.Set("X-Subject-ID", "alice")

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		var batch pdp_model.BatchDecision
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &batch))
		assert.Len(t, batch.Decisions, 2)
		assert.Equal(t, "a", batch.Decisions[0].Resource)
		assert.Equal(t, "b", batch.Decisions[1].Resource)
	})
}
