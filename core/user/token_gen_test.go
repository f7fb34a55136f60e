package user

import (
	"testing"
	"time"
)

func TestMakeVerifyToken(t *testing.T) {
	secretKey := "secret"
	timeout := 3 * 24 * time.Hour

	now := time.Now()
	usr := User{
		ID:        "0b7b0c9e-3b0f-4f5a-9e1d-0a2c2d0c4b11",
		Name:      "T",
		Username:  "t",
		Email:     "t@test.test",
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: &now,
	}
	_ = usr.SetPassword("pwd")

	validToken, err := makeToken(usr, secretKey)
	if err != nil {
		t.Fatalf("makeToken() error = %v", err)
	}

	// generate an expired token
	dayLate := timeout + (24 * time.Hour)
	nowFunc = func() time.Time { return time.Now().Add(-dayLate) }
	expiredToken, _ := makeToken(usr, secretKey)
	nowFunc = time.Now // reset

	// any login invalidates the token
	later := now.Add(time.Hour)
	loggedIn := usr
	loggedIn.LastLogin = &later

	tests := []struct {
		name    string
		usr     User
		token   string
		key     string
		wantErr error
	}{
		{name: "no token", usr: usr, wantErr: errInvalidToken},
		{name: "invalid parts len", usr: usr, token: "lmaooolol", wantErr: errInvalidToken},
		{name: "invalid base32", usr: usr, token: "hahaha-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid timestamp", usr: usr, token: "NRXWY-sigsig-sig", wantErr: errInvalidToken},
		{name: "invalid token", usr: usr, token: "HE4TS-sigsig-sig", wantErr: errInvalidToken},
		{name: "expired token", usr: usr, token: expiredToken, wantErr: errTokenExpired},
		{name: "other secret key", usr: usr, token: validToken, key: "other", wantErr: errInvalidToken},
		{name: "user logged in since", usr: loggedIn, token: validToken, wantErr: errInvalidToken},
		{name: "valid token", usr: usr, token: validToken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key := tt.key
			if key == "" {
				key = secretKey
			}
			if err := verifyToken(tt.usr, tt.token, key, timeout); err != tt.wantErr {
				t.Errorf("verifyToken() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestEncodeDecodeUID(t *testing.T) {
	usr := User{ID: "0b7b0c9e-3b0f-4f5a-9e1d-0a2c2d0c4b11"}
	id, err := decodeUID(EncodeUID(usr))
	if err != nil {
		t.Fatalf("decodeUID() error = %v", err)
	}
	if id != usr.ID {
		t.Errorf("decodeUID() = %v, want %v", id, usr.ID)
	}
	if _, err = decodeUID("!!not-base64!!"); err == nil {
		t.Error("decodeUID() expected an error")
	}
}
