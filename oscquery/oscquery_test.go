package oscquery

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const avatarJSON = `{
	"FULL_PATH": "/avatar",
	"ACCESS": 0,
	"CONTENTS": {
		"parameters": {
			"FULL_PATH": "/avatar/parameters",
			"ACCESS": 0,
			"CONTENTS": {
				"VSync": {
					"FULL_PATH": "/avatar/parameters/VSync",
					"ACCESS": 3,
					"TYPE": "f"
				},
				"JawOpen": {
					"FULL_PATH": "/avatar/parameters/JawOpen",
					"ACCESS": 3,
					"TYPE": "f"
				},
				"FT": {
					"FULL_PATH": "/avatar/parameters/FT",
					"ACCESS": 0,
					"CONTENTS": {
						"v2": {
							"FULL_PATH": "/avatar/parameters/FT/v2",
							"ACCESS": 0,
							"CONTENTS": {
								"EyeLidLeft1": {
									"FULL_PATH": "/avatar/parameters/FT/v2/EyeLidLeft1",
									"ACCESS": 3,
									"TYPE": "T"
								}
							}
						}
					}
				}
			}
		}
	}
}`

func parseAvatar(t *testing.T) *Node {
	t.Helper()
	var root Node
	require.NoError(t, json.Unmarshal([]byte(avatarJSON), &root))
	return &root
}

func TestNodeGet(t *testing.T) {
	root := parseAvatar(t)

	params := root.Get("parameters")
	require.NotNil(t, params)
	assert.False(t, params.IsLeaf())

	leaf := root.Get("parameters/FT/v2/EyeLidLeft1")
	require.NotNil(t, leaf)
	assert.True(t, leaf.IsLeaf())
	assert.Equal(t, "/avatar/parameters/FT/v2/EyeLidLeft1", leaf.FullPath)

	assert.Nil(t, root.Get("parameters/NoSuch"))
	assert.Nil(t, root.Get("parameters/JawOpen/deeper"))
}

func TestHasParameter(t *testing.T) {
	root := parseAvatar(t)
	assert.True(t, root.HasParameter("VSync"))
	assert.False(t, root.HasParameter("OtherSync"))
}

func TestAvatarFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/avatar", r.URL.Path)
		_, _ = w.Write([]byte(avatarJSON))
	}))
	defer srv.Close()

	c := NewClient("VRChat-Client-", nil)
	c.SetEndpoint(srv.URL)

	root, err := c.Avatar(context.Background())
	require.NoError(t, err)
	assert.True(t, root.HasParameter("JawOpen"))
}

func TestAvatarMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("{not json"))
	}))
	defer srv.Close()

	c := NewClient("VRChat-Client-", nil)
	c.SetEndpoint(srv.URL)

	_, err := c.Avatar(context.Background())
	assert.Error(t, err)
}

func TestAvatarWithoutEndpoint(t *testing.T) {
	c := NewClient("VRChat-Client-", nil)
	_, err := c.Avatar(context.Background())
	assert.Error(t, err)
}
