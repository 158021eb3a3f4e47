package handler

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/Calum-Kerr/revisepdf-front/config"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/middleware"
	"github.com/Calum-Kerr/revisepdf-front/internal/api/validate"
	"github.com/Calum-Kerr/revisepdf-front/internal/pkg/response"
	"github.com/Calum-Kerr/revisepdf-front/internal/repository"
	"github.com/Calum-Kerr/revisepdf-front/internal/service"
	"github.com/Calum-Kerr/revisepdf-front/internal/testutil"
	"github.com/Calum-Kerr/revisepdf-front/internal/tier"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := validate.Register(); err != nil {
		panic(err)
	}
}

type testContext struct {
	DB        *gorm.DB
	Ledger    *service.LedgerService
	Accounts  *service.AccountService
	Operation *OperationHandler
	Account   *AccountHandler
}

func setupHandlers(t *testing.T) (*testContext, func()) {
	t.Helper()

	db := testutil.SetupTestDB(t)
	accountRepo := repository.NewAccountRepository(db)
	operationRepo := repository.NewOperationRepository(db)
	catalog := tier.DefaultCatalog()

	ledger := service.NewLedgerService(accountRepo, operationRepo, catalog, nil, nil, &config.Config{}).
		WithClock(testutil.Clock(testutil.Now))
	accounts := service.NewAccountService(accountRepo, catalog).
		WithClock(testutil.Clock(testutil.Now))

	ctx := &testContext{
		DB:        db,
		Ledger:    ledger,
		Accounts:  accounts,
		Operation: NewOperationHandler(ledger),
		Account:   NewAccountHandler(accounts),
	}

	cleanup := func() {
		testutil.CleanupTestDB(t, db)
	}

	return ctx, cleanup
}

func mockAuth(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UserIDKey, userID)
		c.Next()
	}
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	require.NoError(t, err)
	return resp
}

func jsonBody(t *testing.T, v interface{}) *bytes.Reader {
	t.Helper()
	body, err := json.Marshal(v)
	require.NoError(t, err)
	return bytes.NewReader(body)
}
