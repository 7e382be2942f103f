package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"dipindex/core/state"
	"dipindex/crypto"
	"dipindex/native/index"
	"dipindex/rpc"
	"dipindex/storage"
)

const testScript = `
steps:
  - name: mint
    request:
      handler: create_mint
      seed: vote
  - name: forest
    request:
      handler: create_forest
      key: "0x0000000000000000000000000000000000000000000000000000000000000001"
      admin: "0x00000000000000000000000000000000000000a1"
      voteMint: "${mint.mint}"
  - name: music
    request:
      handler: create_tree
      forest: "${forest.forest}"
      tag: music
  - request:
      handler: create_node
      tree: "${music.tree}"
      parent: "${music.rootNode}"
      tag: jazz
`

func TestLoadScriptValidates(t *testing.T) {
	script, err := loadScript(strings.NewReader(testScript))
	require.NoError(t, err)
	require.Equal(t, defaultServer, script.Server)
	require.Len(t, script.Steps, 4)
	require.Equal(t, index.HandlerCreateTree, script.Steps[2].Request.Handler)

	_, err = loadScript(strings.NewReader("steps: []"))
	require.Error(t, err)
	_, err = loadScript(strings.NewReader("steps:\n  - request: {tag: x}\n"))
	require.ErrorContains(t, err, "handler required")
	_, err = loadScript(strings.NewReader("steps:\n  - request: {handler: create_mint, colour: red}\n"))
	require.Error(t, err)
}

func TestExpandResolvesReferences(t *testing.T) {
	results := map[string]map[string]string{"music": {"tree": "0xabc"}}
	req, err := expand(index.Request{Handler: index.HandlerCreateNode, Tree: "${music.tree}"}, results)
	require.NoError(t, err)
	require.Equal(t, "0xabc", req.Tree)

	_, err = expand(index.Request{Tree: "${music.rootNode}"}, results)
	require.ErrorContains(t, err, "unresolved reference")
	_, err = expand(index.Request{Tree: "${unknown.tree}"}, results)
	require.Error(t, err)
}

func TestApplyScriptAgainstServer(t *testing.T) {
	engine := index.NewEngine(state.NewStore(storage.NewMemDB()))
	srv, err := rpc.New(rpc.Config{}, engine, nil, nil)
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	key, err := crypto.GeneratePrivateKey()
	require.NoError(t, err)
	script, err := loadScript(strings.NewReader(testScript))
	require.NoError(t, err)

	var out bytes.Buffer
	c := &client{base: ts.URL, http: http.DefaultClient}
	require.NoError(t, applyScript(c, script, key, &out))
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	require.Len(t, lines, 4)
	require.True(t, strings.HasPrefix(lines[3], index.HandlerCreateNode))

	var forestKey [32]byte
	forestKey[31] = 1
	tree := index.TreeID(index.ForestID(forestKey), "music")
	got, err := engine.Tree(tree)
	require.NoError(t, err)
	require.Equal(t, "music", got.Tag)

	body, err := c.get(inspectPath("node", got.RootNode.Hex()))
	require.NoError(t, err)
	require.Contains(t, string(body), `"tag":"music"`)

	// Replaying fails on the first duplicate record.
	err = applyScript(c, script, key, &out)
	require.ErrorContains(t, err, "AlreadyExists")

	// Unsigned submissions are refused.
	err = applyScript(c, script, nil, &out)
	require.ErrorContains(t, err, "BadSignature")
}

func TestDeriveAndKeygen(t *testing.T) {
	var out bytes.Buffer
	key := "0x0000000000000000000000000000000000000000000000000000000000000001"
	require.NoError(t, runDerive([]string{"forest", "key=" + key}, &out))
	var raw [32]byte
	raw[31] = 1
	require.Equal(t, index.ForestID(raw).Hex(), strings.TrimSpace(out.String()))
	require.Error(t, runDerive([]string{"forest", "key"}, &out))

	t.Setenv("DIP_KEYSTORE_PASS", "secret")
	path := filepath.Join(t.TempDir(), "op.keystore")
	out.Reset()
	require.NoError(t, runKeygen([]string{"--keystore", path}, &out))
	loaded, err := crypto.LoadFromKeystore(path, "secret")
	require.NoError(t, err)
	require.Equal(t, loaded.PubKey().Address().String(), strings.TrimSpace(out.String()))
	require.Error(t, runKeygen([]string{"--keystore", path}, &out))
}
