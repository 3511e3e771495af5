package portal

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"

	apperrors "storagekit/internal/errors"
)

const (
	portalDest       = "org.freedesktop.portal.Desktop"
	portalPath       = dbus.ObjectPath("/org/freedesktop/portal/desktop")
	chooserInterface = "org.freedesktop.portal.FileChooser"
	requestInterface = "org.freedesktop.portal.Request"
	responseMember   = "Response"
	responseSignal   = requestInterface + "." + responseMember
)

// Bus is the part of a session bus connection the provider uses.
// DBusBus implements it over godbus; tests substitute a fake.
type Bus interface {
	// UniqueName is the caller's unique connection name, e.g. ":1.42".
	UniqueName() string
	// CallChooser invokes a FileChooser method and returns the request path.
	CallChooser(ctx context.Context, method, parent, title string, options map[string]dbus.Variant) (dbus.ObjectPath, error)
	// Version reads the FileChooser interface version property.
	Version(ctx context.Context) (uint32, error)
	// Watch subscribes to Request.Response signals on path.
	Watch(path dbus.ObjectPath) error
	// Unwatch drops the subscription installed by Watch.
	Unwatch(path dbus.ObjectPath) error
	// Signals delivers subscribed signals. It is closed with the bus.
	Signals() <-chan *dbus.Signal
}

// DBusBus adapts a godbus session connection.
type DBusBus struct {
	conn    *dbus.Conn
	signals chan *dbus.Signal
	owned   bool
}

var _ Bus = (*DBusBus)(nil)

// Connect opens a private session bus connection.
func Connect() (*DBusBus, error) {
	conn, err := dbus.ConnectSessionBus()
	if err != nil {
		return nil, apperrors.NewTransportError("connect_session_bus", "session bus unavailable", err)
	}
	b := NewDBusBus(conn)
	b.owned = true
	return b, nil
}

// NewDBusBus wraps an existing connection. The caller keeps ownership of conn.
func NewDBusBus(conn *dbus.Conn) *DBusBus {
	b := &DBusBus{conn: conn, signals: make(chan *dbus.Signal, 32)}
	conn.Signal(b.signals)
	return b
}

func (b *DBusBus) UniqueName() string {
	names := b.conn.Names()
	if len(names) == 0 {
		return ""
	}
	return names[0]
}

func (b *DBusBus) CallChooser(ctx context.Context, method, parent, title string, options map[string]dbus.Variant) (dbus.ObjectPath, error) {
	var handle dbus.ObjectPath
	obj := b.conn.Object(portalDest, portalPath)
	call := obj.CallWithContext(ctx, chooserInterface+"."+method, 0, parent, title, options)
	if err := call.Store(&handle); err != nil {
		return "", apperrors.NewTransportError("portal_"+method, "call failed", err)
	}
	return handle, nil
}

func (b *DBusBus) Version(ctx context.Context) (uint32, error) {
	obj := b.conn.Object(portalDest, portalPath)
	var v dbus.Variant
	err := obj.CallWithContext(ctx, "org.freedesktop.DBus.Properties.Get", 0, chooserInterface, "version").Store(&v)
	if err != nil {
		return 0, apperrors.NewTransportError("portal_version", "FileChooser portal not available", err)
	}
	version, ok := v.Value().(uint32)
	if !ok {
		return 0, apperrors.NewTransportError("portal_version", fmt.Sprintf("unexpected version type %s", v.Signature()), nil)
	}
	return version, nil
}

func (b *DBusBus) Watch(path dbus.ObjectPath) error {
	return b.conn.AddMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestInterface),
		dbus.WithMatchMember(responseMember),
	)
}

func (b *DBusBus) Unwatch(path dbus.ObjectPath) error {
	return b.conn.RemoveMatchSignal(
		dbus.WithMatchObjectPath(path),
		dbus.WithMatchInterface(requestInterface),
		dbus.WithMatchMember(responseMember),
	)
}

func (b *DBusBus) Signals() <-chan *dbus.Signal { return b.signals }

// Close unregisters the signal channel and closes the connection if Connect opened it.
func (b *DBusBus) Close() error {
	Forget(b)
	b.conn.RemoveSignal(b.signals)
	if b.owned {
		return b.conn.Close()
	}
	return nil
}
