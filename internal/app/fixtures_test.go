package app

import (
	"context"
	"sync"
	"time"

	"github.com/caseaccessio/api/pkg/domain/access"
	"github.com/caseaccessio/api/pkg/domain/shared"
)

// fakeDirectory resolves users from two in-memory maps.
type fakeDirectory struct {
	byEmail map[string]*DirectoryUser
	byID    map[shared.ID]*DirectoryUser
}

func newFakeDirectory(users ...*DirectoryUser) *fakeDirectory {
	d := &fakeDirectory{
		byEmail: make(map[string]*DirectoryUser),
		byID:    make(map[shared.ID]*DirectoryUser),
	}
	for _, u := range users {
		d.byEmail[u.Email] = u
		d.byID[u.Details.UserID] = u
	}
	return d
}

func (d *fakeDirectory) FindByEmail(_ context.Context, email string) (*DirectoryUser, error) {
	return d.byEmail[email], nil
}

func (d *fakeDirectory) FindByID(_ context.Context, userID shared.ID) (*DirectoryUser, error) {
	return d.byID[userID], nil
}

// fakeDefenceClients knows a fixed set of defence client ids.
type fakeDefenceClients struct {
	known map[shared.ID]bool
}

func newFakeDefenceClients(ids ...shared.ID) *fakeDefenceClients {
	c := &fakeDefenceClients{known: make(map[shared.ID]bool)}
	for _, id := range ids {
		c.known[id] = true
	}
	return c
}

func (c *fakeDefenceClients) Exists(_ context.Context, id shared.ID) (bool, error) {
	return c.known[id], nil
}

// memoryAccessRepo is an in-memory access.Repository for projection checks.
type memoryAccessRepo struct {
	mu      sync.Mutex
	records map[access.Key]*access.Record
}

func newMemoryAccessRepo() *memoryAccessRepo {
	return &memoryAccessRepo{records: make(map[access.Key]*access.Record)}
}

func (r *memoryAccessRepo) Get(_ context.Context, key access.Key) (*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	record, ok := r.records[key]
	if !ok {
		return nil, nil
	}
	clone := *record
	clone.Advocates = append([]access.AdvocateEntry(nil), record.Advocates...)
	return &clone, nil
}

func (r *memoryAccessRepo) Put(_ context.Context, record *access.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *record
	clone.Advocates = append([]access.AdvocateEntry(nil), record.Advocates...)
	r.records[record.Key] = &clone
	return nil
}

func (r *memoryAccessRepo) Delete(_ context.Context, key access.Key) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, key)
	return nil
}

func (r *memoryAccessRepo) FindByCase(_ context.Context, caseID shared.ID) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*access.Record
	for _, record := range r.records {
		if record.Key.CaseID.Equals(caseID) {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memoryAccessRepo) FindExpired(_ context.Context) ([]*access.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now().UTC()
	var out []*access.Record
	for _, record := range r.records {
		if record.Expired(now) {
			clone := *record
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (r *memoryAccessRepo) DeleteExpired(_ context.Context) (int64, error) {
	return 0, nil
}

// directoryUser builds a resolved user fixture.
func directoryUser(email, firstName, lastName string, org *shared.Organisation, groups ...string) *DirectoryUser {
	return &DirectoryUser{
		Details: shared.PersonDetails{
			UserID:    shared.NewID(),
			FirstName: firstName,
			LastName:  lastName,
		},
		Email:        email,
		Groups:       groups,
		Organisation: org,
	}
}

func organisation(name string) *shared.Organisation {
	return &shared.Organisation{ID: shared.NewID(), Name: name}
}
