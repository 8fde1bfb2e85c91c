// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

// Package secrets keeps credentials out of config files. A config value of the
// form keyring://service/key is replaced at load time by the secret stored
// under that service and key in the OS keyring.
package secrets

import (
	"errors"
	"strings"

	"github.com/zalando/go-keyring"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Scheme prefixes config values that name a keyring entry.
const Scheme = "keyring://"

// DefaultService is the keyring service `akcio secret set` writes under.
const DefaultService = "akcio"

// Store reads and writes secrets.
type Store interface {
	Set(service, key, value string) error
	Get(service, key string) (string, error)
	Delete(service, key string) error
}

// Keyring is a Store backed by the OS keyring: Keychain on macOS,
// secret-service on Linux and Credential Manager on Windows.
type Keyring struct{}

func NewKeyring() Keyring { return Keyring{} }

func (Keyring) Set(service, key, value string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	if err := keyring.Set(service, key, value); err != nil {
		return akcioerr.Wrapf(err, akcioerr.CodeSecretStoreFailure, "storing secret %s/%s", service, key)
	}
	return nil
}

func (Keyring) Get(service, key string) (string, error) {
	if err := checkName(service, key); err != nil {
		return "", err
	}
	val, err := keyring.Get(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return "", akcioerr.Errorf(akcioerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return "", akcioerr.Wrapf(err, akcioerr.CodeSecretStoreFailure, "reading secret %s/%s", service, key)
	}
	return val, nil
}

func (Keyring) Delete(service, key string) error {
	if err := checkName(service, key); err != nil {
		return err
	}
	err := keyring.Delete(service, key)
	if errors.Is(err, keyring.ErrNotFound) {
		return akcioerr.Errorf(akcioerr.CodeSecretNotFound, "secret %s/%s not found", service, key)
	}
	if err != nil {
		return akcioerr.Wrapf(err, akcioerr.CodeSecretStoreFailure, "deleting secret %s/%s", service, key)
	}
	return nil
}

// Ref builds the config reference for a keyring entry.
func Ref(service, key string) string {
	return Scheme + service + "/" + key
}

func IsRef(value string) bool {
	return strings.HasPrefix(value, Scheme)
}

// ParseRef splits keyring://service/key. The key may itself contain slashes.
func ParseRef(ref string) (service, key string, err error) {
	if !IsRef(ref) {
		return "", "", akcioerr.Errorf(akcioerr.CodeSecretRefInvalid, "not a keyring reference: %q", ref)
	}
	service, key, ok := strings.Cut(strings.TrimPrefix(ref, Scheme), "/")
	if !ok || service == "" || key == "" {
		return "", "", akcioerr.Errorf(akcioerr.CodeSecretRefInvalid,
			"invalid keyring reference %q: expected keyring://service/key", ref)
	}
	return service, key, nil
}

func checkName(service, key string) error {
	if service == "" || key == "" {
		return akcioerr.New(akcioerr.CodeSecretRefInvalid, "secret service and key must not be empty")
	}
	return nil
}
