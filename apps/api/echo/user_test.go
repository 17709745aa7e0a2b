package echoapi_test

import (
	"context"
	"encoding/json"
	"net/http"
	"regexp"
	"testing"

	. "github.com/trezcool/ratiba/apps/api/echo"
	"github.com/trezcool/ratiba/core/user"
	emailsvc "github.com/trezcool/ratiba/services/email"
)

var loginCodeRegex = regexp.MustCompile(`login is: (\d{6})`)

func TestUserApiAuth(t *testing.T) {
	app := setup(t)
	ctx := context.Background()

	student := app.createUser(t, "Asha Patel", "2200031234@kluniversity.in", "G00d#Pass")
	inactive := app.createUser(t, "Gone User", "gone@kluniversity.in", "G00d#Pass")
	no := false
	if _, err := app.usrSvc.Update(ctx, inactive.ID, user.UpdateUser{IsActive: &no}); err != nil {
		t.Fatalf("deactivating user: %v", err)
	}

	tests := []httpTest{
		{
			name:     "login ok",
			body:     marchallObj(t, LoginRequest{Email: student.Email, Password: "G00d#Pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login normalizes email case",
			body:     marchallObj(t, LoginRequest{Email: "2200031234@KLUniversity.IN", Password: "G00d#Pass"}),
			wantCode: http.StatusOK,
		},
		{
			name:     "login wrong password",
			body:     marchallObj(t, LoginRequest{Email: student.Email, Password: "nope#1234"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "login unknown email",
			body:     marchallObj(t, LoginRequest{Email: "ghost@kluniversity.in", Password: "G00d#Pass"}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name:     "login deactivated account",
			body:     marchallObj(t, LoginRequest{Email: inactive.Email, Password: "G00d#Pass"}),
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name:     "login missing fields",
			body:     marchallObj(t, LoginRequest{}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "this field is required", "password": "this field is required"}`),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if tt.wantData == nil {
				if rec.Code != tt.wantCode {
					t.Fatalf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
				}
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("decoding LoginResponse: %v", err)
				}
				if resp.Token == "" {
					t.Error("failed! empty token")
				}
				return
			}
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("token refresh", func(t *testing.T) {
		token := app.getToken(t, student)
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/token-refresh", token)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; wantCode %v; body %v", rec.Code, http.StatusOK, rec.Body.String())
		}
		var resp LoginResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("decoding LoginResponse: %v", err)
		}
		if resp.Token == "" {
			t.Error("failed! empty token")
		}
	})
}

func TestUserApiLoginCode(t *testing.T) {
	app := setup(t)

	student := app.createUser(t, "Asha Patel", "2200031234@kluniversity.in", "G00d#Pass")
	successBody := marchallObj(t, SuccessResponse{
		Success: "If the email address supplied is associated with an active account on this system, " +
			"an email will arrive in your inbox shortly with a one-time login code.",
	})

	requestCode := func(t *testing.T, email string) {
		t.Helper()
		req, rec := newRequest(http.MethodPost, "/v1/users/login-code", marchallObj(t, LoginCodeRequest{Email: email}))
		app.server.ServeHTTP(rec, req)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: successBody}, rec)
	}
	confirmCode := func(t *testing.T, email, code string) *http.Response {
		t.Helper()
		req, rec := newRequest(http.MethodPost, "/v1/users/login-code-confirm", marchallObj(t, LoginCodeConfirmRequest{Email: email, Code: code}))
		app.server.ServeHTTP(rec, req)
		return rec.Result()
	}
	lastSentCode := func(t *testing.T) string {
		t.Helper()
		if len(emailsvc.SentMessages) == 0 {
			t.Fatal("no email sent")
		}
		msg := emailsvc.SentMessages[len(emailsvc.SentMessages)-1]
		m := loginCodeRegex.FindStringSubmatch(msg.TextContent)
		if m == nil {
			t.Fatalf("no login code found in email body:\n%s", msg.TextContent)
		}
		return m[1]
	}

	t.Run("unknown email gets the same response", func(t *testing.T) {
		requestCode(t, "ghost@kluniversity.in")
		if n := len(emailsvc.SentMessages); n != 0 {
			t.Errorf("len(SentMessages) = %v, want 0", n)
		}
	})

	t.Run("code round trip", func(t *testing.T) {
		requestCode(t, student.Email)
		if n := len(emailsvc.SentMessages); n != 1 {
			t.Fatalf("len(SentMessages) = %v, want 1", n)
		}
		code := lastSentCode(t)

		t.Run("wrong code rejected", func(t *testing.T) {
			wrong := "000000"
			if wrong == code {
				wrong = "000001"
			}
			res := confirmCode(t, student.Email, wrong)
			if res.StatusCode != http.StatusBadRequest {
				t.Errorf("code = %v, want %v", res.StatusCode, http.StatusBadRequest)
			}
		})

		t.Run("valid code logs in", func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login-code-confirm", marchallObj(t, LoginCodeConfirmRequest{Email: student.Email, Code: code}))
			app.server.ServeHTTP(rec, req)

			if rec.Code != http.StatusOK {
				t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
			}
			var resp LoginResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decoding LoginResponse: %v", err)
			}
			if resp.Token == "" {
				t.Error("failed! empty token")
			}
		})

		t.Run("code is consumed on use", func(t *testing.T) {
			res := confirmCode(t, student.Email, code)
			if res.StatusCode != http.StatusBadRequest {
				t.Errorf("code = %v, want %v", res.StatusCode, http.StatusBadRequest)
			}
		})
	})
}

func TestUserApiPermissions(t *testing.T) {
	app := setup(t)

	student := app.createUser(t, "Asha Patel", "2200031234@kluniversity.in", "G00d#Pass")
	otherStudent := app.createUser(t, "Brian Otieno", "2300045678@kluniversity.in", "G00d#Pass")
	admin := app.createUser(t, "Juma Hassan", "juma@kluniversity.in", "G00d#Pass", user.RoleAdmin)
	owner := app.createUser(t, "Neema Zadi", "neema@kluniversity.in", "G00d#Pass", user.AllRoles...)
	victim := app.createUser(t, "To Delete", "victim@kluniversity.in", "G00d#Pass")
	victim2 := app.createUser(t, "To Delete Too", "victim2@kluniversity.in", "G00d#Pass")

	studentToken := app.getToken(t, student)
	adminToken := app.getToken(t, admin)
	ownerToken := app.getToken(t, owner)

	permDenied := marchallObj(t, httpErr{Error: "permission denied"})
	notFound := marchallObj(t, httpErr{Error: "not found"})

	tests := []httpTest{
		{
			name:     "query requires a token",
			method:   http.MethodGet,
			path:     "/v1/users",
			wantCode: http.StatusUnauthorized,
			wantData: marchallObj(t, errMissingToken),
		},
		{
			name:     "query is admin only",
			method:   http.MethodGet,
			path:     "/v1/users",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "roles listing is admin only",
			method:   http.MethodGet,
			path:     "/v1/users/roles",
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "roles listing",
			method:   http.MethodGet,
			path:     "/v1/users/roles",
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, user.Roles),
		},
		{
			name:     "register is admin only",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			token:    studentToken,
			body:     marchallObj(t, user.NewUser{Name: "X", Email: "x@kluniversity.in"}),
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "register rejects foreign email domain",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			token:    adminToken,
			body:     marchallObj(t, user.NewUser{Name: "Eve", Email: "eve@gmail.com"}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "only @kluniversity.in emails are allowed"}`),
		},
		{
			name:     "register rejects duplicate email",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			token:    adminToken,
			body:     marchallObj(t, user.NewUser{Name: "Asha Again", Email: student.Email}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"email": "a user with this email already exists"}`),
		},
		{
			name:     "admin cannot grant owner role",
			method:   http.MethodPost,
			path:     "/v1/users/register",
			token:    adminToken,
			body:     marchallObj(t, user.NewUser{Name: "Pretender", Email: "pretender@kluniversity.in", Roles: []string{user.RoleAdminOwner}}),
			wantCode: http.StatusBadRequest,
			wantData: []byte(`{"roles": "not enough rights to set these roles"}`),
		},
		{
			name:     "students can retrieve themselves",
			method:   http.MethodGet,
			path:     "/v1/users/" + student.ID,
			token:    studentToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, student),
		},
		{
			name:     "students cannot retrieve others",
			method:   http.MethodGet,
			path:     "/v1/users/" + otherStudent.ID,
			token:    studentToken,
			wantCode: http.StatusNotFound,
			wantData: notFound,
		},
		{
			name:     "admins can retrieve anyone",
			method:   http.MethodGet,
			path:     "/v1/users/" + otherStudent.ID,
			token:    adminToken,
			wantCode: http.StatusOK,
			wantData: marchallObj(t, otherStudent),
		},
		{
			name:     "students cannot change their roles",
			method:   http.MethodPut,
			path:     "/v1/users/" + student.ID,
			token:    studentToken,
			body:     []byte(`{"roles": ["admin:"]}`),
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "admins cannot deactivate the owner",
			method:   http.MethodPut,
			path:     "/v1/users/" + owner.ID,
			token:    adminToken,
			body:     []byte(`{"is_active": false}`),
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "owner can administer the owner account",
			method:   http.MethodPut,
			path:     "/v1/users/" + owner.ID,
			token:    ownerToken,
			body:     []byte(`{"name": "Neema Z."}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "destroy is admin only",
			method:   http.MethodDelete,
			path:     "/v1/users/" + student.ID,
			token:    studentToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "admins cannot delete themselves",
			method:   http.MethodDelete,
			path:     "/v1/users/" + admin.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "admins cannot delete the owner",
			method:   http.MethodDelete,
			path:     "/v1/users/" + owner.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "admins can delete lesser users",
			method:   http.MethodDelete,
			path:     "/v1/users/" + victim.ID,
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
		{
			name:     "bulk destroy refuses own id",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + admin.ID + "&id=" + victim2.ID,
			token:    adminToken,
			wantCode: http.StatusForbidden,
			wantData: permDenied,
		},
		{
			name:     "bulk destroy",
			method:   http.MethodDelete,
			path:     "/v1/users?id=" + victim2.ID,
			token:    adminToken,
			wantCode: http.StatusNoContent,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.server.ServeHTTP(rec, req)

			switch tt.wantCode {
			case http.StatusNoContent:
				if rec.Code != tt.wantCode {
					t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
				}
			case http.StatusOK, http.StatusCreated:
				if tt.wantData == nil {
					if rec.Code != tt.wantCode {
						t.Errorf("failed! code = %v; wantCode %v; body %v", rec.Code, tt.wantCode, rec.Body.String())
					}
					return
				}
				fallthrough
			default:
				checkCodeAndData(t, tt, rec)
			}
		})
	}

	t.Run("admins can query all users", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("decoding users: %v", err)
		}
		if len(users) < 4 {
			t.Errorf("len(users) = %v, want at least 4", len(users))
		}
	})

	t.Run("admins can filter users", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search=otieno", adminToken)
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var users []user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &users); err != nil {
			t.Fatalf("decoding users: %v", err)
		}
		if len(users) != 1 || users[0].ID != otherStudent.ID {
			t.Errorf("Filter(otieno) = %+v, want only %v", users, otherStudent.ID)
		}
	})

	t.Run("students can update their own name", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/users/"+student.ID, studentToken, []byte(`{"name": "Asha P."}`))
		app.server.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("failed! code = %v; body %v", rec.Code, rec.Body.String())
		}
		var usr user.User
		if err := json.Unmarshal(rec.Body.Bytes(), &usr); err != nil {
			t.Fatalf("decoding user: %v", err)
		}
		if usr.Name != "Asha P." {
			t.Errorf("Name = %v, want %v", usr.Name, "Asha P.")
		}
	})
}
