package controllers

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileUpdateBioOmittedVsCleared(t *testing.T) {
	// A payload without "bio" must not touch the stored bio; an explicit
	// empty string clears it.
	var req profileUpdateRequest
	require.NoError(t, json.Unmarshal([]byte(`{"email":"new@example.com"}`), &req))
	assert.Nil(t, req.Bio, "omitted bio must decode to nil")

	req = profileUpdateRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"bio":""}`), &req))
	require.NotNil(t, req.Bio)
	assert.Equal(t, "", *req.Bio)

	req = profileUpdateRequest{}
	require.NoError(t, json.Unmarshal([]byte(`{"bio":"latte person"}`), &req))
	require.NotNil(t, req.Bio)
	assert.Equal(t, "latte person", *req.Bio)
}

func TestNormalizeBio(t *testing.T) {
	assert.Equal(t, "", normalizeBio(""))
	assert.Equal(t, "", normalizeBio("   "))
	assert.Equal(t, "coffee first", normalizeBio("  coffee first  "))

	// Script tags are stripped, not stored
	assert.NotContains(t, normalizeBio(`<script>alert(1)</script>hi`), "script")

	long := strings.Repeat("久", 300)
	assert.Len(t, []rune(normalizeBio(long)), 255)
}

func TestValidUsername(t *testing.T) {
	assert.True(t, validUsername("latte_user-01"))
	assert.False(t, validUsername("latte user"))
	assert.False(t, validUsername("latte!"))
}
