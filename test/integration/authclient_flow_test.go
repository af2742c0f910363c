package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sandeepkv93/otp-auth-service/internal/service"
	"github.com/sandeepkv93/otp-auth-service/pkg/authclient"
)

func TestAuthClientDrivesVerifyAndResetFlows(t *testing.T) {
	srv := newTestServer(t)
	ctx := context.Background()

	c, err := authclient.New(srv.baseURL)
	require.NoError(t, err)

	user, err := c.SignUp(ctx, "carol", "Carol@Example.com", "first-pass")
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", user.Email)
	assert.True(t, c.Session().IsLoggedIn())

	ok, err := c.CheckAuth(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	require.NotNil(t, c.Session().UserData())
	assert.False(t, c.Session().UserData().IsAccountVerified)

	verify := authclient.NewVerifyEmailFlow(c)
	require.NoError(t, verify.Start(ctx))
	code := srv.mailer.lastCode(t, service.EmailKindVerifyOTP)
	require.NoError(t, verify.Submit(ctx, code))
	assert.True(t, c.Session().UserData().IsAccountVerified)
	assert.True(t, authclient.IsCode(verify.Start(ctx), "ALREADY_VERIFIED"))

	require.NoError(t, c.SignOut(ctx))
	ok, err = c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.False(t, ok)

	wizard := authclient.NewResetPasswordWizard(c)
	require.NoError(t, wizard.SubmitEmail(ctx, "carol@example.com"))
	resetCode := srv.mailer.lastCode(t, service.EmailKindResetOTP)
	require.NoError(t, wizard.SubmitOTP(resetCode))
	require.NoError(t, wizard.SubmitNewPassword(ctx, "second-pass"))
	assert.Equal(t, authclient.StepDone, wizard.Step())
	assert.False(t, c.Session().IsLoggedIn())

	_, err = c.SignIn(ctx, "carol@example.com", "first-pass")
	assert.True(t, authclient.IsCode(err, "INVALID_CREDENTIALS"))
	_, err = c.SignIn(ctx, "carol@example.com", "second-pass")
	require.NoError(t, err)
	ok, err = c.CheckAuth(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAuthClientBearerOnly(t *testing.T) {
	srv := newTestServer(t)
	srv.register(t, "dave", "dave@example.com", "pass-1234")
	ctx := context.Background()

	c, err := authclient.New(srv.baseURL, authclient.WithBearerToken())
	require.NoError(t, err)
	_, err = c.SignIn(ctx, "dave@example.com", "pass-1234")
	require.NoError(t, err)

	user, ok, err := c.IsAuth(ctx)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "dave", user.Username)
}
