// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Akcio Contributors

package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
// Codes follow area.entity.op.reason; the last segment is the reason.
type Code string

const (
	CodeProjectNameInvalid               Code = "project.name.validate.invalid"
	CodeProjectStoreNotFound             Code = "project.store.get.not_found"
	CodeProjectStoreAlreadyExists        Code = "project.store.create.already_exists"
	CodeProjectStateCheckInconsistent    Code = "project.state.check.inconsistent"
	CodeProjectStateCreateInconsistent   Code = "project.state.create.inconsistent"
	CodeProjectStateDropInconsistent     Code = "project.state.drop.inconsistent"
	CodeProjectStateCountInconsistent    Code = "project.state.count.inconsistent"
	CodeProjectStateInsertInconsistent   Code = "project.state.insert.inconsistent"
	CodeProjectRecordInvalid             Code = "project.record.validate.invalid"
	CodeProjectCollectionSpecInvalid     Code = "project.collection.spec.invalid"
	CodeProjectStoreWriteFailure         Code = "project.store.write.failure"
	CodeStoreBackendUnsupported          Code = "store.backend.resolve.invalid"
	CodeStoreBackendOpenFailure          Code = "store.backend.open.failure"

	CodeIngestSourceUnreadable  Code = "ingest.source.read.unreadable"
	CodeIngestSourceTypeInvalid Code = "ingest.source.type.invalid"

	CodeEmbeddingVectorFailure     Code = "embedding.vector.embed.failure"
	CodeEmbeddingDimensionMismatch Code = "embedding.vector.dimension.mismatch"
	CodeEmbeddingConfigInvalid     Code = "embedding.config.validate.invalid"

	CodeRetrievalVectorFailure Code = "retrieval.vector.backend.failure"
	CodeRetrievalScalarFailure Code = "retrieval.scalar.backend.failure"

	CodeGenerationProviderFailure Code = "generation.provider.call.failure"
	CodeGenerationEmptyResponse   Code = "generation.provider.response.empty"

	CodeMemoryTableNotFound    Code = "memory.table.get.not_found"
	CodeMemoryPersistFailure   Code = "memory.turn.persist.failure"
	CodeMemoryReadFailure      Code = "memory.turn.read.failure"
	CodeMemoryTableDropFailure Code = "memory.table.drop.failure"
	CodeMemoryPayloadInvalid   Code = "memory.turn.decode.invalid"
	CodeMemorySessionInvalid   Code = "memory.session.validate.invalid"

	CodeConfigLoadReadFailure      Code = "config.load.read.failure"
	CodeConfigParseInvalidFormat   Code = "config.parse.invalid_format"
	CodeConfigValidateInvalidValue Code = "config.validate.invalid_value"

	CodeProviderRequestInvalid  Code = "provider.request.invalid"
	CodeProviderUpstreamFailure Code = "provider.upstream.failure"
	CodeProviderNotFound        Code = "provider.registry.not_found"
	CodeProviderAllUnavailable  Code = "provider.routing.all_unavailable"
	CodeProviderNoDefault       Code = "provider.routing.no_default"
	CodeProviderInvalidModelRef Code = "provider.routing.invalid_model_ref"
	CodeProviderKeyInvalid      Code = "provider.key.validate.invalid"
	CodeProviderKeyCheckFailed  Code = "provider.key.check.failure"

	CodeWatchSetupFailure Code = "watch.setup.failure"

	CodeAssistantConfigInvalid Code = "assistant.config.invalid"

	CodeSecretRefInvalid     Code = "secret.ref.parse.invalid"
	CodeSecretNotFound       Code = "secret.value.get.not_found"
	CodeSecretStoreFailure   Code = "secret.value.store.failure"
	CodeSecretResolveFailure Code = "secret.ref.resolve.failure"

	CodeServerInternalFailure Code = "server.internal.failure"
	CodeServerConfigInvalid   Code = "server.config.invalid"
	CodeServerStartFailure    Code = "server.start.failure"
	CodeServerShutdownFailure Code = "server.shutdown.failure"

	CodeCLISetupFailure Code = "cli.setup.failure"
	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Kind groups codes into the failure categories callers branch on.
type Kind string

const (
	KindNotFound          Kind = "not_found"
	KindAlreadyExists     Kind = "already_exists"
	KindInconsistentState Kind = "inconsistent_state"
	KindSourceUnreadable  Kind = "source_unreadable"
	KindEmbedding         Kind = "embedding_error"
	KindRetrieval         Kind = "retrieval_error"
	KindGeneration        Kind = "generation_error"
	KindPersistence       Kind = "persistence_error"
	KindInvalidInput      Kind = "invalid_input"
	KindInternal          Kind = "internal"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProject(value string) Attr {
	return Field("project", value)
}

func FieldSession(value string) Attr {
	return Field("session_id", value)
}

func FieldOperation(value string) Attr {
	return Field("operation", value)
}

func FieldProvider(value string) Attr {
	return Field("provider", value)
}

func FieldBackend(value string) Attr {
	return Field("backend", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeServerInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

// Classify wraps err with code unless the chain already carries one, in which
// case only the fields are added. The innermost code of a chain wins, so an
// error classified close to its source keeps that classification upstream.
func Classify(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	if CodeOf(err) != "" {
		return oops.With(flatten(fields)...).Wrapf(err, "%s", msg)
	}
	return Wrap(err, code, msg, fields...)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	if oopsErr.Code() == nil {
		return ""
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

// KindOf maps an error to its failure category. Uncoded errors are internal.
func KindOf(err error) Kind {
	code := CodeOf(err)
	if code == "" {
		return KindInternal
	}

	raw := string(code)
	switch {
	case strings.HasPrefix(raw, "embedding."):
		return KindEmbedding
	case strings.HasPrefix(raw, "retrieval."):
		return KindRetrieval
	case strings.HasPrefix(raw, "generation."), strings.HasPrefix(raw, "provider."):
		return KindGeneration
	}

	switch r := reason(code); {
	case r == "not_found":
		return KindNotFound
	case r == "already_exists":
		return KindAlreadyExists
	case r == "inconsistent":
		return KindInconsistentState
	case r == "unreadable":
		return KindSourceUnreadable
	case isInvalidReason(r):
		return KindInvalidInput
	}

	if strings.HasPrefix(raw, "memory.") || strings.HasPrefix(raw, "project.store.") {
		return KindPersistence
	}
	return KindInternal
}

func IsNotFound(err error) bool {
	return KindOf(err) == KindNotFound
}

func IsAlreadyExists(err error) bool {
	return KindOf(err) == KindAlreadyExists
}

func IsInconsistent(err error) bool {
	return KindOf(err) == KindInconsistentState
}

func IsInvalidInput(err error) bool {
	return KindOf(err) == KindInvalidInput
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists:
		return http.StatusConflict
	case KindInvalidInput:
		return http.StatusBadRequest
	case KindSourceUnreadable:
		return http.StatusUnprocessableEntity
	case KindEmbedding, KindRetrieval, KindGeneration:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func Join(errs ...error) error {
	return oops.Code(CodeServerInternalFailure).Wrap(stderrors.Join(errs...))
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func isInvalidReason(r string) bool {
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format" || r == "invalid_model_ref"
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
