package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/vcompra/cartsync/internal/common"
)

// Register prompts for credentials and creates an account. On success
// the session is authenticated right away.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Register(ctx, username, email, password)
	if err != nil {
		if errors.Is(err, common.ErrDuplicateIdentity) {
			fmt.Fprintln(a.out, "Username or email already taken.")
			return err
		}
		fmt.Fprintf(a.out, "Registration failed: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Registered and logged in as %s.\n", user.Username)
	return nil
}

// Login prompts for email and password and authenticates the session.
func (a *App) Login(ctx context.Context) error {
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	user, err := a.session.Login(ctx, email, password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredential) {
			fmt.Fprintln(a.out, "Invalid email or password.")
			return err
		}
		fmt.Fprintf(a.out, "Login failed: %v\n", err)
		return err
	}

	fmt.Fprintf(a.out, "Logged in as %s.\n", user.Username)
	return nil
}

// Logout drops the session locally. Remote data is untouched.
func (a *App) Logout(ctx context.Context) error {
	if err := a.session.Logout(ctx); err != nil {
		fmt.Fprintf(a.out, "Logout failed: %v\n", err)
		return err
	}
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}

// Status prints the session state and sync position.
func (a *App) Status(ctx context.Context) error {
	fmt.Fprintf(a.out, "State: %s\n", a.session.State())

	user, ok := a.session.Current()
	if !ok {
		return nil
	}
	fmt.Fprintf(a.out, "User: %s <%s>\n", user.Username, user.Email)

	state, err := a.engine.SyncState(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Sync state unavailable: %v\n", err)
		return err
	}
	if state.LastSync != nil {
		fmt.Fprintf(a.out, "Last sync: %s\n", state.LastSync.Local())
	} else {
		fmt.Fprintln(a.out, "Never synced.")
	}
	if state.HasLocalData {
		fmt.Fprintln(a.out, "Local changes pending upload.")
	}
	return nil
}

// List prints the locally cached dataset.
func (a *App) List(ctx context.Context) error {
	dataset, err := a.cache.Load(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Reading local data failed: %v\n", err)
		return err
	}
	if len(dataset) == 0 {
		fmt.Fprintln(a.out, "No local records.")
		return nil
	}
	for _, rec := range dataset {
		fmt.Fprintf(a.out, "  %s: %v\n", rec.ID, rec.Fields["name"])
	}
	fmt.Fprintf(a.out, "%d record(s).\n", len(dataset))
	return nil
}

// Upload replaces the remote dataset with the local cache.
func (a *App) Upload(ctx context.Context) error {
	local, err := a.cache.Load(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Reading local data failed: %v\n", err)
		return err
	}

	res, err := a.engine.UploadLocalData(ctx, local)
	if err != nil {
		return a.reportSyncError(err, "Upload")
	}

	fmt.Fprintf(a.out, "Uploaded %d record(s) at %s.\n", len(res.Dataset), res.SyncedAt.Local())
	return nil
}

// Download replaces the local cache with the remote dataset.
func (a *App) Download(ctx context.Context) error {
	res, err := a.engine.DownloadRemoteData(ctx)
	if err != nil {
		return a.reportSyncError(err, "Download")
	}

	fmt.Fprintf(a.out, "Downloaded %d record(s).\n", len(res.Dataset))
	return nil
}

// Merge combines remote and local datasets and stores the result on
// both sides.
func (a *App) Merge(ctx context.Context) error {
	local, err := a.cache.Load(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Reading local data failed: %v\n", err)
		return err
	}

	res, err := a.engine.MergeLocalData(ctx, local)
	if err != nil {
		return a.reportSyncError(err, "Merge")
	}

	fmt.Fprintf(a.out, "Merged: %d record(s) at %s.\n", len(res.Dataset), res.SyncedAt.Local())
	return nil
}

func (a *App) reportSyncError(err error, op string) error {
	switch {
	case errors.Is(err, common.ErrUnauthenticated):
		fmt.Fprintln(a.out, "Log in first.")
	case errors.Is(err, common.ErrEmptyRemote):
		fmt.Fprintln(a.out, "No remote data for this account.")
	default:
		fmt.Fprintf(a.out, "%s failed: %v\n", op, err)
	}
	return err
}
