package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	jwttoken "bazaar/internal/jwt_token"
	"bazaar/internal/ledger"
	"bazaar/internal/nameindex"
	usermodels "bazaar/internal/users/models"
	userservice "bazaar/internal/users/service"
	userstore "bazaar/internal/users/store"
	vendormodels "bazaar/internal/vendors/models"
	vendorservice "bazaar/internal/vendors/service"
	vendorstore "bazaar/internal/vendors/store"
	"bazaar/pkg/domain"
)

const testFee = uint64(100)

// RouterSuite drives the registry through the full HTTP stack with in-memory
// backends: real services, real middleware, real JWT validation.
type RouterSuite struct {
	suite.Suite

	handler http.Handler
	jwt     *jwttoken.JWTService
	ledger  *ledger.InMemory

	admin domain.AccountID
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.ledger = ledger.NewInMemory()
	s.admin = domain.AccountID(uuid.New())
	s.jwt = jwttoken.NewJWTService("test-key", "bazaar-test", "bazaar-api")

	userNames := nameindex.NewInMemory()
	userTx := userservice.NewInMemoryTx()
	userProfiles := userstore.NewInMemoryProfileStore()
	userState := userstore.NewInMemoryFactoryStateStore()
	userFactory := userservice.NewFactoryService(userProfiles, userState, userNames, s.ledger,
		userservice.WithLogger(logger), userservice.WithTx(userTx))
	userProfileSvc := userservice.NewProfileService(userProfiles, userState, userNames,
		userservice.WithLogger(logger), userservice.WithTx(userTx))
	_, err := userFactory.Initialize(ctx, s.admin, testFee)
	s.Require().NoError(err)

	vendorNames := nameindex.NewInMemory()
	vendorTx := vendorservice.NewInMemoryTx()
	vendorProfiles := vendorstore.NewInMemoryProfileStore()
	vendorState := vendorstore.NewInMemoryFactoryStateStore()
	vendorFactory := vendorservice.NewFactoryService(vendorProfiles, vendorState, vendorNames, s.ledger,
		vendorservice.WithLogger(logger), vendorservice.WithTx(vendorTx))
	vendorProfileSvc := vendorservice.NewProfileService(vendorProfiles, vendorState, vendorNames,
		vendorservice.WithLogger(logger), vendorservice.WithTx(vendorTx))
	_, err = vendorFactory.Initialize(ctx, s.admin, testFee)
	s.Require().NoError(err)

	s.handler = NewRouter(
		NewUserHandler(userFactory, userProfileSvc, logger),
		NewVendorHandler(vendorFactory, vendorProfileSvc, logger),
		RouterConfig{
			Logger:       logger,
			JWTValidator: jwttoken.NewJWTServiceAdapter(s.jwt),
		},
	)
}

func (s *RouterSuite) request(method, path string, body any, as domain.AccountID) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if !as.IsZero() {
		token, err := s.jwt.GenerateAccessToken(as, time.Hour)
		s.Require().NoError(err)
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func (s *RouterSuite) fundedAccount(balance uint64) domain.AccountID {
	account := domain.AccountID(uuid.New())
	s.Require().NoError(s.ledger.Mint(context.Background(), account, balance))
	return account
}

func (s *RouterSuite) decode(rec *httptest.ResponseRecorder, v any) {
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(v))
}

func (s *RouterSuite) TestUserRegistrationFlow() {
	caller := s.fundedAccount(testFee)

	rec := s.request(http.MethodPost, "/users/register", map[string]string{
		"username": "Alice_01",
		"bio":      "hello",
	}, caller)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var profile usermodels.Profile
	s.decode(rec, &profile)
	s.Equal("alice_01", profile.Username)

	s.Run("readable without auth", func() {
		rec := s.request(http.MethodGet, "/users/name/alice_01", nil, domain.AccountID{})
		s.Require().Equal(http.StatusOK, rec.Code)
	})

	s.Run("name no longer available", func() {
		rec := s.request(http.MethodGet, "/users/availability?username=alice_01", nil, domain.AccountID{})
		s.Require().Equal(http.StatusOK, rec.Code)
		var avail availabilityResponse
		s.decode(rec, &avail)
		s.False(avail.Available)
	})

	s.Run("duplicate registration conflicts", func() {
		other := s.fundedAccount(testFee)
		rec := s.request(http.MethodPost, "/users/register", map[string]string{"username": "alice_01"}, other)
		s.Require().Equal(http.StatusConflict, rec.Code)
	})
}

func (s *RouterSuite) TestAuthRequired() {
	rec := s.request(http.MethodPost, "/users/register", map[string]string{"username": "ghost"}, domain.AccountID{})
	s.Equal(http.StatusUnauthorized, rec.Code)

	req := httptest.NewRequest(http.MethodPost, "/users/register", bytes.NewReader([]byte("{}")))
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec2 := httptest.NewRecorder()
	s.handler.ServeHTTP(rec2, req)
	s.Equal(http.StatusUnauthorized, rec2.Code)
}

func (s *RouterSuite) TestInsufficientFundsMapsTo402() {
	caller := s.fundedAccount(testFee - 1)
	rec := s.request(http.MethodPost, "/users/register", map[string]string{"username": "broke01"}, caller)
	s.Equal(http.StatusPaymentRequired, rec.Code)
}

func (s *RouterSuite) TestValidationMapsTo400() {
	caller := s.fundedAccount(testFee)
	rec := s.request(http.MethodPost, "/users/register", map[string]string{"username": "ab"}, caller)
	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *RouterSuite) TestUserRename() {
	caller := s.fundedAccount(testFee)
	rec := s.request(http.MethodPost, "/users/register", map[string]string{"username": "before01"}, caller)
	s.Require().Equal(http.StatusCreated, rec.Code)

	rec = s.request(http.MethodPost, "/users/rename", map[string]string{"new_username": "after01"}, caller)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	rec = s.request(http.MethodGet, "/users/name/before01", nil, domain.AccountID{})
	s.Equal(http.StatusNotFound, rec.Code)
	rec = s.request(http.MethodGet, "/users/name/after01", nil, domain.AccountID{})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestVendorLifecycle() {
	caller := s.fundedAccount(testFee)

	rec := s.request(http.MethodPost, "/vendors/register", map[string]string{
		"name":        "CornerShop",
		"description": "fresh goods",
	}, caller)
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var profile vendormodels.Profile
	s.decode(rec, &profile)
	s.Equal("cornershop", profile.Name)

	s.Run("add and remove products", func() {
		rec := s.request(http.MethodPost, "/vendors/name/cornershop/products", map[string]any{
			"id":    "sku1",
			"price": 500,
		}, caller)
		s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

		rec = s.request(http.MethodPost, "/vendors/name/cornershop/products", map[string]any{"id": "sku1"}, caller)
		s.Equal(http.StatusConflict, rec.Code)

		rec = s.request(http.MethodDelete, "/vendors/name/cornershop/products/sku1", nil, caller)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.request(http.MethodDelete, "/vendors/name/cornershop/products/sku1", nil, caller)
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("stranger gets 403", func() {
		stranger := s.fundedAccount(0)
		rec := s.request(http.MethodPut, "/vendors/name/cornershop/description", map[string]string{
			"description": "vandalism",
		}, stranger)
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("list by owner", func() {
		rec := s.request(http.MethodGet, "/vendors?owner="+caller.String(), nil, domain.AccountID{})
		s.Require().Equal(http.StatusOK, rec.Code)
		var list []vendormodels.Profile
		s.decode(rec, &list)
		s.Len(list, 1)
	})
}

func (s *RouterSuite) TestVendorPauseFlow() {
	rec := s.request(http.MethodPut, "/admin/vendors/pause", map[string]bool{"paused": true}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	caller := s.fundedAccount(testFee)
	rec = s.request(http.MethodPost, "/vendors/register", map[string]string{"name": "latestall"}, caller)
	s.Equal(http.StatusConflict, rec.Code)

	s.Run("non-admin cannot pause", func() {
		rec := s.request(http.MethodPut, "/admin/vendors/pause", map[string]bool{"paused": false}, caller)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})
}

func (s *RouterSuite) TestAdminFeeAndWithdraw() {
	rec := s.request(http.MethodPut, "/admin/users/fee", map[string]uint64{"fee": 250}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	var state usermodels.FactoryState
	s.decode(rec, &state)
	s.Equal(uint64(250), state.RegistrationFee)

	caller := s.fundedAccount(250)
	rec = s.request(http.MethodPost, "/users/register", map[string]string{"username": "payer01"}, caller)
	s.Require().Equal(http.StatusCreated, rec.Code)

	destination := domain.AccountID(uuid.New())
	rec = s.request(http.MethodPost, "/admin/users/withdraw", map[string]any{
		"amount":      250,
		"destination": destination.String(),
	}, s.admin)
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())

	s.Run("over-withdrawal rejected", func() {
		rec := s.request(http.MethodPost, "/admin/users/withdraw", map[string]any{
			"amount":      1,
			"destination": destination.String(),
		}, s.admin)
		s.Equal(http.StatusPaymentRequired, rec.Code)
	})
}

func (s *RouterSuite) TestHealthAndMetricsEndpoints() {
	rec := s.request(http.MethodGet, "/healthz", nil, domain.AccountID{})
	s.Equal(http.StatusOK, rec.Code)

	rec = s.request(http.MethodGet, "/metrics", nil, domain.AccountID{})
	s.Equal(http.StatusOK, rec.Code)
}

func (s *RouterSuite) TestRequestIDPropagated() {
	rec := s.request(http.MethodGet, "/healthz", nil, domain.AccountID{})
	s.NotEmpty(rec.Header().Get("X-Request-ID"))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "given-id")
	rec2 := httptest.NewRecorder()
	s.handler.ServeHTTP(rec2, req)
	s.Equal("given-id", rec2.Header().Get("X-Request-ID"))
}

func (s *RouterSuite) TestUnsupportedMediaType() {
	caller := s.fundedAccount(testFee)
	token, err := s.jwt.GenerateAccessToken(caller, time.Hour)
	s.Require().NoError(err)

	req := httptest.NewRequest(http.MethodPost, "/users/register",
		bytes.NewReader([]byte(fmt.Sprintf("username=%s", "alice"))))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	s.Equal(http.StatusUnsupportedMediaType, rec.Code)
}
