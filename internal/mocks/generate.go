// Package mocks provides mock implementations for testing the doorman system.
//
// This package uses go.uber.org/mock (gomock) to generate type-safe mocks for
// the authentication ports. The mocks are generated using go:generate
// directives and provide a fluent API for setting up test expectations.
// Hand-written stateful doubles live in the auth subpackage.
//
// To regenerate mocks after interface changes, run:
//
//	go generate ./internal/mocks
//
// Usage in tests:
//
//	ctrl := gomock.NewController(t)
//	defer ctrl.Finish()
//	mockStore := mocks.NewMockUserStore(ctrl)
//	mockStore.EXPECT().FindByUPN(gomock.Any(), gomock.Any()).Return(user, nil)
package mocks

// Generate mock for UserStore interface from internal/ports.
// This creates MockUserStore with methods for all UserStore interface methods:
// FindByUPN, Create, UpdateAttributes, List, Roles, AddRole, ClearRoles, RoleExists
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=user_store_mock.go github.com/doorman-id/doorman/internal/ports UserStore

// Generate mock for DirectoryDialer interface from internal/ports.
// This creates MockDirectoryDialer with the single Open method.
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=directory_dialer_mock.go github.com/doorman-id/doorman/internal/ports DirectoryDialer

// Generate mock for DirectoryConn interface from internal/ports.
// This creates MockDirectoryConn with methods:
// IsConnected, ResolveUser, UserGroups, Close
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=directory_conn_mock.go github.com/doorman-id/doorman/internal/ports DirectoryConn

// Generate mock for SessionFlagStore interface from internal/ports.
// This creates MockSessionFlagStore with methods:
// FailedPrincipal, SetFailedPrincipal, ClearFailedPrincipal, LoggedOut, SetLoggedOut
//go:generate go run go.uber.org/mock/mockgen -package=mocks -destination=session_flag_store_mock.go github.com/doorman-id/doorman/internal/ports SessionFlagStore
