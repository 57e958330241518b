/*
SPDX-FileCopyrightText: Red Hat

SPDX-License-Identifier: Apache-2.0
*/

package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	typederrors "github.com/gemini-hlsw/ocs-sub028/internal/typed-errors"
)

// classifyError translates a database error into one of the typed errors understood by the
// replica executor. Errors that are already typed and context errors are returned unchanged.
func classifyError(replica string, err error) error {
	if err == nil {
		return nil
	}
	if typederrors.IsNotFoundError(err) || typederrors.IsInvariantError(err) ||
		typederrors.IsAuthError(err) || typederrors.IsUnavailableError(err) ||
		errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return typederrors.NewNotFoundError(err, "no matching row in replica %s", replica)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.InsufficientPrivilege,
			pgerrcode.InvalidAuthorizationSpecification,
			pgerrcode.InvalidPassword:
			return typederrors.NewAuthError(err, "replica %s rejected the credentials: %s", replica, pgErr.Message)
		case pgerrcode.AdminShutdown, pgerrcode.CannotConnectNow:
			return typederrors.NewUnavailableError(err, "replica %s is shutting down: %s", replica, pgErr.Message)
		}
		if pgerrcode.IsConnectionException(pgErr.Code) {
			return typederrors.NewUnavailableError(err, "lost connection to replica %s: %s", replica, pgErr.Message)
		}
		return fmt.Errorf("replica %s failed: %w", replica, err)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) || pgconn.Timeout(err) {
		return typederrors.NewUnavailableError(err, "failed to connect to replica %s", replica)
	}

	return fmt.Errorf("replica %s failed: %w", replica, err)
}
