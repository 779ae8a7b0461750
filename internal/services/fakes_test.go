package services

import (
	"context"
	"sync"

	"convolab/config"
	"convolab/internal/domain/user"
	"convolab/internal/llm"
	convolab_errors "convolab/pkg/errors"
)

// memUserRepo mimics the users table, including the unique email constraint.
type memUserRepo struct {
	mu     sync.Mutex
	nextID int64
	byID   map[int64]user.User

	// skipLookup makes GetUserByEmail miss, as a concurrent signup would see it.
	skipLookup bool
	createErr  error
	lookupErr  error
	creates    int
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{byID: map[int64]user.User{}}
}

func (r *memUserRepo) Create(_ context.Context, u *user.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.creates++
	if r.createErr != nil {
		return r.createErr
	}
	for _, existing := range r.byID {
		if existing.Email == u.Email {
			return convolab_errors.ErrAlreadyExists
		}
	}
	r.nextID++
	u.ID = r.nextID
	r.byID[u.ID] = *u
	return nil
}

func (r *memUserRepo) GetUserByID(_ context.Context, id int64) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.byID[id]
	if !ok {
		return user.User{}, convolab_errors.ErrNotFound
	}
	return u, nil
}

func (r *memUserRepo) GetUserByEmail(_ context.Context, email string) (user.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.lookupErr != nil {
		return user.User{}, r.lookupErr
	}
	if r.skipLookup {
		return user.User{}, convolab_errors.ErrNotFound
	}
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return user.User{}, convolab_errors.ErrNotFound
}

func (r *memUserRepo) countEmail(email string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, u := range r.byID {
		if u.Email == email {
			n++
		}
	}
	return n
}

type fakeCompleter struct {
	result     llm.Result
	lastPrompt string
	lastModel  string
}

func (f *fakeCompleter) Complete(_ context.Context, prompt, model string) llm.Result {
	f.lastPrompt = prompt
	f.lastModel = model
	return f.result
}

func configForTest() config.LLMConfig {
	return config.LLMConfig{APIKey: "gsk-test", APIURL: "http://completion.invalid/v1/chat/completions"}
}
