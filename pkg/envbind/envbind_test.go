package envbind

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/secrets"
)

func TestMatchPicksFirstEnvironmentOfMatchingTypeAndApplication(t *testing.T) {
	app1, app2 := "app-1", "app-2"
	envs := []*models.Environment{
		{ID: "e1", Type: models.TestTypeAPI, ApplicationID: &app1},
		{ID: "e2", Type: models.TestTypeE2E, ApplicationID: &app1},
		{ID: "e3", Type: models.TestTypeE2E, ApplicationID: &app2},
	}

	got, ok := Match(envs, models.TestTypeE2E, &app1)
	require.True(t, ok)
	assert.Equal(t, "e2", got.ID)

	_, ok = Match(envs, models.TestTypeAPI, &app2)
	assert.False(t, ok)
}

func TestMatchAcceptsAnyApplicationWhenCaseUnscoped(t *testing.T) {
	app1 := "app-1"
	envs := []*models.Environment{
		{ID: "e1", Type: models.TestTypeE2E, ApplicationID: &app1},
	}
	got, ok := Match(envs, models.TestTypeE2E, nil)
	require.True(t, ok)
	assert.Equal(t, "e1", got.ID)
}

func TestResolveActorFallsBackToTicket(t *testing.T) {
	ticketActor := "admin"
	ticket := &models.Ticket{PrimaryActor: &ticketActor}
	tc := &models.TestCase{}

	assert.Equal(t, &ticketActor, ResolveActor(tc, ticket))

	caseActor := "operator"
	tc.PrimaryActor = &caseActor
	assert.Equal(t, &caseActor, ResolveActor(tc, ticket))
}

func TestResolveCredentialMatchesRoleCaseInsensitivelyOrFallsBackToFirst(t *testing.T) {
	env := &models.Environment{Credentials: []models.Credential{
		{Role: "Admin", Username: "admin@x.test", Password: "a"},
		{Role: "operator", Username: "op@x.test", Password: "b"},
	}}

	actor := "OPERATOR"
	cred, ok := ResolveCredential(env, &actor)
	require.True(t, ok)
	assert.Equal(t, "op@x.test", cred.Username)

	noMatch := "nobody"
	cred, ok = ResolveCredential(env, &noMatch)
	require.True(t, ok)
	assert.Equal(t, "admin@x.test", cred.Username)
}

func TestResolveCredentialFalseWhenNoCredentials(t *testing.T) {
	_, ok := ResolveCredential(&models.Environment{}, nil)
	assert.False(t, ok)
}

func TestDecryptRoundTripsEnvironmentSecrets(t *testing.T) {
	box, err := secrets.NewBox("test-master-secret")
	require.NoError(t, err)

	appKeyEnc, err := box.Encrypt("app-key-value")
	require.NoError(t, err)
	secretKeyEnc, err := box.Encrypt("secret-key-value")
	require.NoError(t, err)

	env := &models.Environment{AppKeyEnc: appKeyEnc, SecretKeyEnc: secretKeyEnc}
	resolved, err := Decrypt(box, env)
	require.NoError(t, err)

	assert.Equal(t, "app-key-value", resolved.AppKey)
	assert.Equal(t, "secret-key-value", resolved.SecretKey)
	assert.Equal(t, "", resolved.APIToken)
}
