package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"issuetracker/internal/handler"
	"issuetracker/internal/middleware"
	"issuetracker/internal/model"
	"issuetracker/internal/service"
)

type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Register(ctx context.Context, in service.RegisterInput) (*service.Session, error) {
	args := m.Called(ctx, in)
	session, _ := args.Get(0).(*service.Session)
	return session, args.Error(1)
}

func (m *MockAuthenticator) Login(ctx context.Context, email, password string) (*service.Session, error) {
	args := m.Called(ctx, email, password)
	session, _ := args.Get(0).(*service.Session)
	return session, args.Error(1)
}

func (m *MockAuthenticator) Me(ctx context.Context, userID uuid.UUID) (*model.User, error) {
	args := m.Called(ctx, userID)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockAuthenticator) UpdateProfile(ctx context.Context, userID uuid.UUID, name string) (*model.User, error) {
	args := m.Called(ctx, userID, name)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockAuthenticator) ChangePassword(ctx context.Context, userID uuid.UUID, current, next string) error {
	return m.Called(ctx, userID, current, next).Error(0)
}

func (m *MockAuthenticator) ForgotPassword(ctx context.Context, email string) error {
	return m.Called(ctx, email).Error(0)
}

func (m *MockAuthenticator) ResetPassword(ctx context.Context, token, password string) error {
	return m.Called(ctx, token, password).Error(0)
}

func TestMain(m *testing.M) {
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func setupTest() (*gin.Engine, *MockAuthenticator) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	mockAuth := new(MockAuthenticator)
	userHandler := handler.NewUserHandler(mockAuth, nil)

	r.POST("/register", userHandler.Register)
	r.POST("/login", userHandler.Login)
	r.POST("/forgot-password", userHandler.ForgotPassword)
	return r, mockAuth
}

func postJSON(r *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	jsonBody, _ := json.Marshal(body)
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewBuffer(jsonBody))
	req.Header.Set("Content-Type", "application/json")
	resp := httptest.NewRecorder()
	r.ServeHTTP(resp, req)
	return resp
}

func TestRegister_Success(t *testing.T) {
	router, mockAuth := setupTest()
	reqBody := handler.RegisterRequest{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: "password123",
	}
	user := &model.User{ID: uuid.New(), Name: reqBody.Name, Email: reqBody.Email}
	mockAuth.On("Register", mock.Anything, service.RegisterInput{
		Name:     reqBody.Name,
		Email:    reqBody.Email,
		Password: reqBody.Password,
	}).Return(&service.Session{Token: "signed", User: user}, nil)

	resp := postJSON(router, "/register", reqBody)

	assert.Equal(t, http.StatusCreated, resp.Code)
	var response handler.AuthResponse
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "signed", response.Token)
	assert.Equal(t, reqBody.Name, response.User.Name)
	assert.Equal(t, reqBody.Email, response.User.Email)
	assert.NotContains(t, resp.Body.String(), "assword", "password hashes never leave the API")
	mockAuth.AssertExpectations(t)
}

func TestRegister_UserAlreadyExists(t *testing.T) {
	router, mockAuth := setupTest()
	mockAuth.On("Register", mock.Anything, mock.Anything).
		Return(nil, service.Conflict("User with this email already exists"))

	resp := postJSON(router, "/register", handler.RegisterRequest{
		Name:     "Test User",
		Email:    "existing@example.com",
		Password: "password123",
	})

	assert.Equal(t, http.StatusConflict, resp.Code)
	var response map[string]string
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "User with this email already exists", response["error"])
	mockAuth.AssertExpectations(t)
}

func TestRegister_MissingFields(t *testing.T) {
	router, mockAuth := setupTest()

	resp := postJSON(router, "/register", map[string]string{"email": "a@example.com"})

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	var body struct {
		Error  string   `json:"error"`
		Fields []string `json:"fields"`
	}
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &body))
	assert.Equal(t, "Invalid input", body.Error)
	assert.ElementsMatch(t, []string{"name: required", "password: required"}, body.Fields)
	mockAuth.AssertNotCalled(t, "Register", mock.Anything, mock.Anything)
}

func TestLogin_Success(t *testing.T) {
	router, mockAuth := setupTest()
	testUser := &model.User{ID: uuid.New(), Email: "test@example.com", Name: "Test User"}
	mockAuth.On("Login", mock.Anything, "test@example.com", "password123").
		Return(&service.Session{Token: "signed", User: testUser}, nil)

	resp := postJSON(router, "/login", handler.LoginRequest{Email: "test@example.com", Password: "password123"})

	assert.Equal(t, http.StatusOK, resp.Code)
	var response handler.AuthResponse
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.NotEmpty(t, response.Token)
	assert.Equal(t, testUser.Name, response.User.Name)
	assert.Equal(t, testUser.Email, response.User.Email)
	assert.Equal(t, testUser.ID.String(), response.User.ID)
	mockAuth.AssertExpectations(t)
}

func TestLogin_InvalidCredentials(t *testing.T) {
	router, mockAuth := setupTest()
	mockAuth.On("Login", mock.Anything, "test@example.com", "wrong_password").
		Return(nil, service.Unauthorized("Invalid email or password"))

	resp := postJSON(router, "/login", handler.LoginRequest{Email: "test@example.com", Password: "wrong_password"})

	assert.Equal(t, http.StatusUnauthorized, resp.Code)
	var response map[string]string
	assert.NoError(t, json.Unmarshal(resp.Body.Bytes(), &response))
	assert.Equal(t, "Invalid email or password", response["error"])
	mockAuth.AssertExpectations(t)
}

func TestForgotPassword_SameAnswerForUnknownEmail(t *testing.T) {
	router, mockAuth := setupTest()
	mockAuth.On("ForgotPassword", mock.Anything, "nobody@example.com").Return(nil)

	resp := postJSON(router, "/forgot-password", handler.ForgotPasswordRequest{Email: "nobody@example.com"})

	assert.Equal(t, http.StatusOK, resp.Code)
	assert.Contains(t, resp.Body.String(), "If an account exists")
	mockAuth.AssertExpectations(t)
}
