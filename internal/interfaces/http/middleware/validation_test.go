package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/erp/collections/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type paymentRequest struct {
	CustomerID string              `json:"customer_id" binding:"required,uuid"`
	Amount     decimal.Decimal     `json:"amount" binding:"required,gt=0"`
	Promised   decimal.NullDecimal `json:"promised_amount" binding:"omitempty,gt=0"`
	Mode       string              `json:"mode" binding:"omitempty,oneof=CASH UPI"`
}

func TestValidation(t *testing.T) {
	SetupValidator()

	router := gin.New()
	router.Use(RequestID())
	router.POST("/test", func(c *gin.Context) {
		var req paymentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			require.True(t, IsValidationError(err))
			HandleValidationError(c, err)
			return
		}
		c.Status(http.StatusOK)
	})

	send := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/test", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	t.Run("valid body", func(t *testing.T) {
		w := send(`{"customer_id":"0f8fad5b-d9cb-469f-a165-70867728950e","amount":"125.50","mode":"UPI"}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("null promised amount is skipped", func(t *testing.T) {
		w := send(`{"customer_id":"0f8fad5b-d9cb-469f-a165-70867728950e","amount":10,"promised_amount":null}`)
		assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	})

	t.Run("fields are reported by json name", func(t *testing.T) {
		w := send(`{"customer_id":"nope","amount":"-5","promised_amount":"-1","mode":"CARD"}`)
		require.Equal(t, http.StatusBadRequest, w.Code)

		var resp dto.Response
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		require.NotNil(t, resp.Error)
		assert.Equal(t, dto.ErrCodeValidation, resp.Error.Code)
		assert.NotEmpty(t, resp.Error.RequestID)

		fields := map[string]string{}
		for _, f := range resp.Error.Fields {
			fields[f.Field] = f.Message
		}
		assert.Equal(t, "Invalid UUID format", fields["customer_id"])
		assert.Equal(t, "Must be greater than 0", fields["amount"])
		assert.Equal(t, "Must be greater than 0", fields["promised_amount"])
		assert.Equal(t, "Must be one of: CASH UPI", fields["mode"])
	})
}
