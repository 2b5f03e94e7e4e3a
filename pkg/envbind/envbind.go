// Package envbind binds a TestCase to an Environment and resolves the
// credentials an Execution dispatches with (§4.11).
package envbind

import (
	"fmt"
	"strings"

	"github.com/qaflow/qaflow/pkg/models"
	"github.com/qaflow/qaflow/pkg/secrets"
)

// Match picks the first Environment in envs whose Type equals testType and
// whose ApplicationID matches applicationID (nil accepts any environment),
// per §4.11: "pick the first Environment in the schedule whose type ==
// testType and whose applicationId == testCase.applicationId (if the case
// names an application; else accept any)". envs is assumed to already be
// the Schedule's bound subset, in the schedule's stored order.
func Match(envs []*models.Environment, testType models.TestType, applicationID *string) (*models.Environment, bool) {
	for _, env := range envs {
		if env.Type == testType && env.MatchesApplication(applicationID) {
			return env, true
		}
	}
	return nil, false
}

// ResolveActor returns the TestCase's primary actor, falling back to its
// parent Ticket's primary actor when the case does not name one directly
// (§4.11: "matching ... the TestCase's primaryActor (or its parent
// Ticket's primaryActor)"). ticket may be nil when the case has no ticket.
func ResolveActor(tc *models.TestCase, ticket *models.Ticket) *string {
	if tc.PrimaryActor != nil && *tc.PrimaryActor != "" {
		return tc.PrimaryActor
	}
	if ticket != nil {
		return ticket.PrimaryActor
	}
	return nil
}

// ResolveCredential picks the Credential matching actor's role
// case-insensitively, falling back to the first row when no role matches
// or actor is nil. Returns false if the Environment has no credentials at
// all (legacy single-username/password fields do not exist on this model;
// every Environment uses the Credentials list — see DESIGN.md).
func ResolveCredential(env *models.Environment, actor *string) (models.Credential, bool) {
	if len(env.Credentials) == 0 {
		return models.Credential{}, false
	}
	if actor != nil {
		for _, c := range env.Credentials {
			if strings.EqualFold(c.Role, *actor) {
				return c, true
			}
		}
	}
	return env.Credentials[0], true
}

// ResolvedSecrets holds an Environment's decrypted secret material for the
// lifetime of a single dispatched Execution (§9: "the plaintext does not
// outlive the job").
type ResolvedSecrets struct {
	AppKey    string
	SecretKey string
	APIToken  string
}

// Decrypt decrypts env's encrypted-at-rest fields using box. It runs twice
// for each dispatch: in the run orchestrator, which checks that the fields
// decrypt and discards the result, and again in the execution worker when it
// runs the job, so decryption is not limited to once per dispatched
// Execution. Callers must not cache the result beyond that Execution's
// lifetime.
func Decrypt(box *secrets.Box, env *models.Environment) (ResolvedSecrets, error) {
	appKey, err := box.Decrypt(env.AppKeyEnc)
	if err != nil {
		return ResolvedSecrets{}, fmt.Errorf("envbind: decrypt app key: %w", err)
	}
	secretKey, err := box.Decrypt(env.SecretKeyEnc)
	if err != nil {
		return ResolvedSecrets{}, fmt.Errorf("envbind: decrypt secret key: %w", err)
	}
	apiToken, err := box.Decrypt(env.APITokenEnc)
	if err != nil {
		return ResolvedSecrets{}, fmt.Errorf("envbind: decrypt api token: %w", err)
	}
	return ResolvedSecrets{AppKey: appKey, SecretKey: secretKey, APIToken: apiToken}, nil
}
