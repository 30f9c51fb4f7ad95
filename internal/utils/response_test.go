package utils

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func record(fn func(c *gin.Context)) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	fn(c)
	return w
}

func TestSuccessEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) {
		Success(c, "fetched", gin.H{"id": "abc"})
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":200,"message":"fetched","data":{"id":"abc"}}`, w.Body.String())
}

func TestCreatedEnvelope(t *testing.T) {
	w := record(func(c *gin.Context) {
		Created(c, "created", gin.H{"id": "abc"})
	})

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"status":201`)
}

func TestErrorEnvelopeOmitsData(t *testing.T) {
	w := record(func(c *gin.Context) {
		BadRequest(c, "bad input")
	})

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"status":400,"message":"An error occurred","error":"bad input"}`, w.Body.String())
}
