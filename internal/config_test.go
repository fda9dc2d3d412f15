package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/marginalia/internal/annotation"
)

func TestAuthConfig(t *testing.T) {
	cfg := AuthConfig{Mode: "", Token: ""}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, AuthModeDisabled, cfg.Mode, "empty mode defaults to disabled")
	assert.False(t, cfg.AuthEnabled())

	cfg = AuthConfig{Mode: "token", Token: "mysecret"}
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.AuthEnabled())

	cfg = AuthConfig{Mode: "token"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "token is empty")

	cfg = AuthConfig{Mode: "magic", Token: "x"}
	assert.Error(t, cfg.Validate())
}

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, annotation.KindNote, cfg.Annotations.Default())
	assert.Equal(t, annotation.AllKinds, cfg.Annotations.ParsedKinds())
	assert.Equal(t, ":8080", cfg.App.HTTP.Address())
}

func TestAnnotationsConfig(t *testing.T) {
	cfg := AnnotationsConfig{Kinds: []string{"comment"}, DefaultKind: "comment"}
	require.NoError(t, cfg.Validate())
	assert.Equal(t, []annotation.Kind{annotation.KindComment}, cfg.ParsedKinds())
	assert.Equal(t, annotation.KindComment, cfg.Default())

	cfg = AnnotationsConfig{Kinds: []string{"todo"}}
	assert.Error(t, cfg.Validate())

	cfg = AnnotationsConfig{DefaultKind: "todo"}
	assert.Error(t, cfg.Validate())

	cfg = AnnotationsConfig{MaxTextWidth: -1}
	assert.Error(t, cfg.Validate())
}

func TestExportConfig(t *testing.T) {
	cfg := ExportConfig{}
	cfg.Backends = []string{"html", "odt"}
	require.NoError(t, cfg.Validate())

	cfg.Backends = []string{"docx"}
	assert.Error(t, cfg.Validate())
}

func TestFullConfig_ValidationCalled(t *testing.T) {
	cfg := NewDefaultConfig()
	cfg.Auth.Mode = "token"
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Export.Backends = []string{"nope"}
	assert.Error(t, cfg.Validate())

	cfg = NewDefaultConfig()
	cfg.Vault.Extensions = []string{""}
	assert.Error(t, cfg.Validate())
}
