package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/cpp-cyber/ldapauth/internal/ldap"
	"github.com/cpp-cyber/ldapauth/internal/logger"
	"github.com/cpp-cyber/ldapauth/internal/models"
	"github.com/cpp-cyber/ldapauth/internal/store"
)

// Reconciler materializes a verified directory identity as a local user.
type Reconciler struct {
	store           *store.Store
	mappers         Mappers
	savePassword    bool
	uniqueUsernames bool
	notifiers       []Notifier
	recorder        Recorder
	locker          Locker
}

// Locker serializes reconciliation of one username across replicas.
type Locker interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func NewReconciler(s *store.Store, mappers Mappers, savePassword bool) *Reconciler {
	return &Reconciler{
		store:        s,
		mappers:      mappers,
		savePassword: savePassword,
		recorder:     nopRecorder{},
	}
}

// WithUniqueUsernames stores new accounts under a slug of the mapped
// username, taking "slug-2", "slug-3", ... when the slug is already held.
func (r *Reconciler) WithUniqueUsernames(enabled bool) *Reconciler {
	r.uniqueUsernames = enabled
	return r
}

func (r *Reconciler) WithNotifiers(notifiers ...Notifier) *Reconciler {
	r.notifiers = append(r.notifiers, notifiers...)
	return r
}

func (r *Reconciler) WithLocker(locker Locker) *Reconciler {
	r.locker = locker
	return r
}

func (r *Reconciler) WithRecorder(recorder Recorder) *Reconciler {
	if recorder != nil {
		r.recorder = recorder
	}
	return r
}

// Reconcile creates or updates the local user for identity in one
// transaction. A username conflict from a concurrent first login is retried
// once, at which point the other login's row is visible.
func (r *Reconciler) Reconcile(ctx context.Context, identity ldap.Identity, password string) (*models.User, bool, error) {
	username := r.mappers.Username.apply(identity.Username)
	email := r.mappers.Email.apply(identity.Email)
	fullName := r.mappers.FullName.apply(identity.FullName)
	if username == "" {
		return nil, false, &ReconcileError{Username: identity.Username, Cause: errors.New("mapped username is empty")}
	}

	if r.locker != nil {
		release, err := r.locker.Acquire(ctx, "ldapauth:reconcile:"+username)
		if err != nil {
			return nil, false, &ReconcileError{Username: username, Cause: err}
		}
		defer release()
	}

	var (
		user             *models.User
		created, updated bool
		err              error
	)
	for attempt := 0; attempt < 2; attempt++ {
		user, created, updated, err = r.reconcile(ctx, identity, username, email, fullName, password)
		if err == nil || !errors.Is(err, store.ErrUsernameConflict) {
			break
		}
		logger.Ctx(ctx).Debug().Str("username", username).Int("attempt", attempt+1).Msg("username conflict during reconcile")
	}
	if err != nil {
		return nil, false, &ReconcileError{Username: username, Cause: err}
	}

	if updated {
		r.recorder.UserUpdated()
	}
	if created {
		r.recorder.UserRegistered()
		for _, n := range r.notifiers {
			if err := n.UserRegistered(ctx, user); err != nil {
				logger.Ctx(ctx).Warn().Err(err).Str("username", user.Username).Msg("registration notification failed")
			}
		}
	}

	return user, created, nil
}

func (r *Reconciler) reconcile(ctx context.Context, identity ldap.Identity, username, email, fullName, password string) (*models.User, bool, bool, error) {
	var (
		user             *models.User
		created, updated bool
	)

	err := r.store.Transaction(ctx, func(tx *store.Store) error {
		existing, err := r.lookup(ctx, tx, username)
		if errors.Is(err, store.ErrRecordNotFound) {
			user, err = r.create(ctx, tx, identity.Username, username, email, fullName, password)
			created = err == nil
			return err
		}
		if err != nil {
			return err
		}

		user = existing
		updated, err = r.update(ctx, tx, user, email, fullName, password)
		return err
	})
	if err != nil {
		return nil, false, false, err
	}
	return user, created, updated, nil
}

// lookup finds the user by exact mapped username first. An account created
// earlier under a unique slug is then found by the mapped username it was
// created for.
func (r *Reconciler) lookup(ctx context.Context, tx *store.Store, username string) (*models.User, error) {
	user, err := tx.GetUserByUsername(ctx, username)
	if err == nil || !errors.Is(err, store.ErrRecordNotFound) {
		return user, err
	}
	return tx.GetUserByMappedUsername(ctx, username)
}

func (r *Reconciler) create(ctx context.Context, tx *store.Store, externalID, username, email, fullName, password string) (*models.User, error) {
	mapped := username
	if r.uniqueUsernames {
		slug := Slugify(username)
		if slug == "" {
			return nil, fmt.Errorf("username %q has no usable characters", username)
		}
		unique, err := uniqueUsername(ctx, tx, slug)
		if err != nil {
			return nil, err
		}
		username = unique
	}

	user := &models.User{
		Username:       username,
		Email:          email,
		FullName:       fullName,
		ExternalID:     externalID,
		AuthSource:     models.AuthSourceLDAP,
		MappedUsername: &mapped,
	}
	if r.savePassword {
		hash, err := HashPassword(password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := tx.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// update keeps the local password in step with the directory and copies
// changed email and full name. The username is never rewritten.
func (r *Reconciler) update(ctx context.Context, tx *store.Store, user *models.User, email, fullName, password string) (bool, error) {
	fields := map[string]any{}

	switch {
	case r.savePassword && !CheckPassword(user.PasswordHash, password):
		hash, err := HashPassword(password)
		if err != nil {
			return false, err
		}
		fields["password_hash"] = hash
	case !r.savePassword && user.PasswordHash != "":
		fields["password_hash"] = ""
	}
	if user.Email != email {
		fields["email"] = email
	}
	if user.FullName != fullName {
		fields["full_name"] = fullName
	}

	if len(fields) == 0 {
		return false, nil
	}
	if err := tx.UpdateUserFields(ctx, user, fields); err != nil {
		return false, fmt.Errorf("failed to update user: %w", err)
	}

	if v, ok := fields["password_hash"]; ok {
		user.PasswordHash = v.(string)
	}
	user.Email = email
	user.FullName = fullName
	return true, nil
}

func uniqueUsername(ctx context.Context, tx *store.Store, base string) (string, error) {
	candidate := base
	for i := 2; ; i++ {
		exists, err := tx.UsernameExists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
		candidate = base + "-" + strconv.Itoa(i)
	}
}
