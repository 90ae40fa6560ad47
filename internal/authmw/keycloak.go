package authmw

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"kyri56xcaesar/opscrm/internal/utils"

	"github.com/Nerzal/gocloak/v13"
)

// Account is what the identity provider needs to know about a new staff member.
type Account struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
	Role      string
}

// Provisioned is the result of creating an account. TempPassword must be changed at
// first login.
type Provisioned struct {
	UserID       string `json:"userId"`
	TempPassword string `json:"tempPassword"`
}

// Service talks to the Keycloak admin API with a service-account client.
type Service struct {
	Client       *gocloak.GoCloak
	Realm        string
	clientID     string
	clientSecret string
}

func NewService(baseURL, realm, clientID, clientSecret string) (*Service, error) {
	client := gocloak.NewClient("http://" + baseURL)

	s := &Service{
		Client:       client,
		Realm:        realm,
		clientID:     clientID,
		clientSecret: clientSecret,
	}

	if err := s.selfTest(); err != nil {
		return nil, err
	}

	return s, nil
}

func (s *Service) selfTest() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	jwt, err := s.LoginAdmin(ctx)
	if err != nil {
		return fmt.Errorf("keycloak auth failed: %w", err)
	}

	_, err = s.Client.GetRealm(ctx, jwt.AccessToken, s.Realm)
	if err != nil {
		return fmt.Errorf("keycloak permission check failed: %w", err)
	}

	return nil
}

func (s *Service) LoginAdmin(ctx context.Context) (*gocloak.JWT, error) {
	return s.Client.LoginClient(
		ctx,
		s.clientID,
		s.clientSecret,
		s.Realm,
	)
}

// Provision creates an enabled user with a temporary password and grants the realm role
// matching acc.Role.
func (s *Service) Provision(ctx context.Context, acc Account) (Provisioned, error) {
	adminJWT, err := s.LoginAdmin(ctx)
	if err != nil {
		return Provisioned{}, fmt.Errorf("failed to get admin token: %w", err)
	}
	token := adminJWT.AccessToken

	password, err := utils.GenerateRandomString(16)
	if err != nil {
		return Provisioned{}, err
	}

	user := gocloak.User{
		Username:  gocloak.StringP(acc.Username),
		Email:     gocloak.StringP(acc.Email),
		Enabled:   gocloak.BoolP(true),
		FirstName: gocloak.StringP(acc.FirstName),
		LastName:  gocloak.StringP(acc.LastName),
		Credentials: &[]gocloak.CredentialRepresentation{
			{
				Type:      gocloak.StringP("password"),
				Value:     gocloak.StringP(password),
				Temporary: gocloak.BoolP(true),
			},
		},
	}

	userID, err := s.Client.CreateUser(ctx, token, s.Realm, user)
	if err != nil {
		return Provisioned{}, fmt.Errorf("create user: %w", err)
	}

	role := acc.Role
	if role == "" {
		role = RoleStaff
	}
	rr, err := s.Client.GetRealmRole(ctx, token, s.Realm, role)
	if err != nil {
		return Provisioned{}, fmt.Errorf("role not found %s: %w", role, err)
	}
	if err := s.Client.AddRealmRoleToUser(ctx, token, s.Realm, userID, []gocloak.Role{*rr}); err != nil {
		return Provisioned{}, fmt.Errorf("add role: %w", err)
	}

	log.Printf("provisioned keycloak user %s with role %s", acc.Username, role)

	return Provisioned{UserID: userID, TempPassword: password}, nil
}

// Disable turns the account off without deleting it, used when staff are soft deleted.
func (s *Service) Disable(ctx context.Context, username string) error {
	adminJWT, err := s.LoginAdmin(ctx)
	if err != nil {
		return fmt.Errorf("failed to get admin token: %w", err)
	}
	token := adminJWT.AccessToken

	users, err := s.Client.GetUsers(ctx, token, s.Realm, gocloak.GetUsersParams{
		Username: gocloak.StringP(username),
		Exact:    gocloak.BoolP(true),
		Max:      gocloak.IntP(2),
	})
	if err != nil {
		return err
	}
	if len(users) != 1 {
		return fmt.Errorf("expected one user named %s, found %d", username, len(users))
	}

	u := users[0]
	u.Enabled = gocloak.BoolP(false)

	return s.Client.UpdateUser(ctx, token, s.Realm, *u)
}

// SplitName splits a full name into first and last name for the identity provider.
func SplitName(full string) (string, string) {
	parts := strings.Fields(full)
	switch len(parts) {
	case 0:
		return "", ""
	case 1:
		return parts[0], ""
	default:
		return parts[0], strings.Join(parts[1:], " ")
	}
}
