// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package secrets

import (
	"strings"

	"github.com/spf13/viper"

	akcioerr "github.com/akcio-dev/akcio/pkg/errors"
)

// Resolve returns value with a keyring reference replaced by the secret it
// names. Other values pass through.
func Resolve(store Store, value string) (string, error) {
	if !IsRef(value) {
		return value, nil
	}
	service, key, err := ParseRef(value)
	if err != nil {
		return "", err
	}
	secret, err := store.Get(service, key)
	if err != nil {
		return "", akcioerr.Classify(err, akcioerr.CodeSecretResolveFailure, "resolving "+value)
	}
	return secret, nil
}

// IsSecretKey reports whether a config key may hold a credential.
func IsSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key") || strings.HasSuffix(key, "dsn")
}

// ResolveViper replaces every keyring reference held by a credential key in v.
// The first failure is returned with the offending key attached.
func ResolveViper(v *viper.Viper, store Store) error {
	for _, key := range v.AllKeys() {
		if !IsSecretKey(key) {
			continue
		}
		raw := v.GetString(key)
		if !IsRef(raw) {
			continue
		}
		secret, err := Resolve(store, raw)
		if err != nil {
			return akcioerr.With(err, akcioerr.Field("config_key", key))
		}
		v.Set(key, secret)
	}
	return nil
}
