package memory

/*
				Calliper Identity Adapter - In-Memory Provider
	Provider implements account creation, sign-in with email verification and
	bearer sessions against process-local maps. It backs development and test
	deployments; production points the same port at a hosted identity service.
*/

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calliperhq/calliper/internal/core/domain"
)

const DefaultSessionTTL = 24 * time.Hour

type accountRecord struct {
	account           domain.Account
	passwordHash      string
	verificationToken string
}

type Provider struct {
	mu         sync.RWMutex
	byEmail    map[string]*accountRecord
	byID       map[string]*accountRecord
	sessions   map[string]domain.Session
	sessionTTL time.Duration

	now func() time.Time
}

func NewProvider(sessionTTL time.Duration) *Provider {
	if sessionTTL <= 0 {
		sessionTTL = DefaultSessionTTL
	}
	return &Provider{
		byEmail:    make(map[string]*accountRecord),
		byID:       make(map[string]*accountRecord),
		sessions:   make(map[string]domain.Session),
		sessionTTL: sessionTTL,
		now:        time.Now,
	}
}

func (p *Provider) CreateAccount(ctx context.Context, email, password string) (domain.Account, error) {
	key := strings.ToLower(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, taken := p.byEmail[key]; taken {
		return domain.Account{}, domain.ErrEmailTaken
	}

	hash, err := hashPassword(password)
	if err != nil {
		return domain.Account{}, err
	}

	record := &accountRecord{
		account: domain.Account{
			ID:        uuid.NewString(),
			Email:     key,
			CreatedAt: p.now(),
		},
		passwordHash:      hash,
		verificationToken: uuid.NewString(),
	}

	p.byEmail[key] = record
	p.byID[record.account.ID] = record

	return record.account, nil
}

// SignIn authenticates email and password and mints a session. The password
// is always verified, even for unknown emails, so the two failure modes take
// comparable time.
func (p *Provider) SignIn(ctx context.Context, email, password string) (domain.Session, error) {
	key := strings.ToLower(email)

	p.mu.Lock()
	defer p.mu.Unlock()

	record, found := p.byEmail[key]
	if !found {
		verifyPassword(password, decoyHash)
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	if !verifyPassword(password, record.passwordHash) {
		return domain.Session{}, domain.ErrInvalidCredentials
	}

	if !record.account.EmailVerified {
		return domain.Session{}, domain.ErrNotVerified
	}

	session := domain.Session{
		Token:     uuid.NewString(),
		UserID:    record.account.ID,
		ExpiresAt: p.now().Add(p.sessionTTL),
	}
	p.sessions[session.Token] = session

	return session, nil
}

func (p *Provider) VerifyEmail(ctx context.Context, token string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, record := range p.byEmail {
		if record.verificationToken != "" && record.verificationToken == token {
			record.account.EmailVerified = true
			record.verificationToken = ""
			return nil
		}
	}
	return domain.ErrNotFound
}

func (p *Provider) EmailExists(ctx context.Context, email string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	_, exists := p.byEmail[strings.ToLower(email)]
	return exists, nil
}

func (p *Provider) ValidateSession(ctx context.Context, token string) (domain.Account, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	session, found := p.sessions[token]
	if !found {
		return domain.Account{}, domain.ErrSessionExpired
	}

	if p.now().After(session.ExpiresAt) {
		delete(p.sessions, token)
		return domain.Account{}, domain.ErrSessionExpired
	}

	record, found := p.byID[session.UserID]
	if !found {
		return domain.Account{}, domain.ErrSessionExpired
	}

	return record.account, nil
}

// VerificationToken returns the pending verification token for email, or ""
// when the account does not exist or is already verified. Development
// deployments surface this instead of sending mail.
func (p *Provider) VerificationToken(email string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()

	record, found := p.byEmail[strings.ToLower(email)]
	if !found {
		return ""
	}
	return record.verificationToken
}

// decoyHash absorbs a verification pass when the email is unknown.
var decoyHash = func() string {
	hash, err := hashPassword(uuid.NewString())
	if err != nil {
		panic(err)
	}
	return hash
}()
