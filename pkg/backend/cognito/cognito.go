// Package cognito implements backend.Authenticator on an AWS Cognito user
// pool app client.
package cognito

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"

	"tableflip.dev/wordsmith/pkg/backend"
)

// API is the subset of the Cognito client used here.
type API interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
}

// Authenticator implements backend.Authenticator.
type Authenticator struct {
	api      API
	clientID string
}

var _ backend.Authenticator = (*Authenticator)(nil)

// New loads AWS configuration for region and returns an authenticator for
// the app client. Public app client calls need no credentials.
func New(ctx context.Context, region, clientID string) (*Authenticator, error) {
	if clientID == "" {
		return nil, backend.NewError(backend.EnvError, "cognito client id is not configured")
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(region),
		awsconfig.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		return nil, fmt.Errorf("cognito: load aws config: %w", err)
	}
	return NewWithAPI(cip.NewFromConfig(cfg), clientID), nil
}

// NewWithAPI wraps an existing client.
func NewWithAPI(api API, clientID string) *Authenticator {
	return &Authenticator{api: api, clientID: clientID}
}

// Login implements backend.Authenticator with USER_PASSWORD_AUTH.
func (a *Authenticator) Login(ctx context.Context, email, password string) (*backend.Session, error) {
	out, err := a.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(a.clientID),
		AuthParameters: map[string]string{
			"USERNAME": email,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return nil, classify(err, "login")
	}
	return sessionOf(out)
}

// Register implements backend.Authenticator.
func (a *Authenticator) Register(ctx context.Context, email, password string) error {
	_, err := a.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(a.clientID),
		Username: aws.String(email),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
		},
	})
	if err != nil {
		return classify(err, "sign up")
	}
	return nil
}

// VerifyEmail implements backend.Authenticator.
func (a *Authenticator) VerifyEmail(ctx context.Context, email, code string) error {
	_, err := a.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(a.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
	})
	if err != nil {
		return classify(err, "confirm sign up")
	}
	return nil
}

// VerifyEmailAndLogin implements backend.Authenticator.
func (a *Authenticator) VerifyEmailAndLogin(ctx context.Context, email, password, code string) (*backend.Session, error) {
	if err := a.VerifyEmail(ctx, email, code); err != nil {
		return nil, err
	}
	return a.Login(ctx, email, password)
}

// Refresh implements backend.Authenticator with REFRESH_TOKEN_AUTH.
func (a *Authenticator) Refresh(ctx context.Context, refreshToken string) (*backend.Session, error) {
	out, err := a.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(a.clientID),
		AuthParameters: map[string]string{
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return nil, classify(err, "refresh")
	}
	return sessionOf(out)
}

func sessionOf(out *cip.InitiateAuthOutput) (*backend.Session, error) {
	if out == nil || out.AuthenticationResult == nil {
		challenge := ""
		if out != nil {
			challenge = string(out.ChallengeName)
		}
		return nil, backend.NewError(backend.APIError, "unsupported auth challenge %q", challenge)
	}
	r := out.AuthenticationResult
	return &backend.Session{
		AccessToken:  aws.ToString(r.AccessToken),
		RefreshToken: aws.ToString(r.RefreshToken),
		IDToken:      aws.ToString(r.IdToken),
		TokenType:    aws.ToString(r.TokenType),
		ExpiresIn:    int(r.ExpiresIn),
	}, nil
}

func classify(err error, op string) error {
	var (
		notAuthorized *types.NotAuthorizedException
		notConfirmed  *types.UserNotConfirmedException
		exists        *types.UsernameExistsException
		badCode       *types.CodeMismatchException
		expiredCode   *types.ExpiredCodeException
		badPassword   *types.InvalidPasswordException
	)
	switch {
	case errors.As(err, &notAuthorized):
		return backend.Wrap(backend.APIError, err, "incorrect email or password")
	case errors.As(err, &notConfirmed):
		return backend.Wrap(backend.APIError, err, "email address is not verified yet")
	case errors.As(err, &exists):
		return backend.Wrap(backend.APIError, err, "an account with this email already exists")
	case errors.As(err, &badCode):
		return backend.Wrap(backend.APIError, err, "the verification code is incorrect")
	case errors.As(err, &expiredCode):
		return backend.Wrap(backend.APIError, err, "the verification code has expired")
	case errors.As(err, &badPassword):
		return backend.Wrap(backend.ValidationError, err, "the password does not meet the policy")
	}
	return backend.Wrap(backend.HTTPError, err, "cognito %s failed", op)
}
