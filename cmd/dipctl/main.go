package main

import (
	"encoding/hex"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"dipindex/cmd/internal/passphrase"
	"dipindex/crypto"
	"dipindex/native/index"
)

const (
	keygenCommand  = "keygen"
	deriveCommand  = "derive"
	applyCommand   = "apply"
	inspectCommand = "inspect"

	defaultServer   = "http://localhost:8080"
	defaultKeystore = "operator.keystore"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case keygenCommand:
		err = runKeygen(os.Args[2:], os.Stdout)
	case deriveCommand:
		err = runDerive(os.Args[2:], os.Stdout)
	case applyCommand:
		err = runApply(os.Args[2:], os.Stdout)
	case inspectCommand:
		err = runInspect(os.Args[2:], os.Stdout)
	default:
		usage()
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func runKeygen(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(keygenCommand, flag.ExitOnError)
	keystorePath := fs.String("keystore", defaultKeystore, "Output path for the keystore file")
	importHex := fs.String("import", "", "Hex encoded private key to import instead of generating one")
	force := fs.Bool("force", false, "Overwrite an existing keystore file")
	_ = fs.Parse(args)

	if !*force {
		if _, err := os.Stat(*keystorePath); err == nil {
			return fmt.Errorf("keystore file %s already exists (use --force to overwrite)", *keystorePath)
		} else if !os.IsNotExist(err) {
			return err
		}
	}

	var (
		key *crypto.PrivateKey
		err error
	)
	if strings.TrimSpace(*importHex) != "" {
		key, err = parseHexKey(*importHex)
	} else {
		key, err = crypto.GeneratePrivateKey()
	}
	if err != nil {
		return err
	}
	pass, err := passphrase.NewSource(passphrase.EnvVar).AllowEmpty().Get()
	if err != nil {
		return err
	}
	if err := crypto.SaveToKeystore(*keystorePath, key, pass); err != nil {
		return fmt.Errorf("failed to write keystore: %w", err)
	}
	fmt.Fprintf(out, "%s\n", key.PubKey().Address().String())
	return nil
}

func parseHexKey(value string) (*crypto.PrivateKey, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	if trimmed == "" {
		return nil, fmt.Errorf("private key is empty")
	}
	bytes, err := hex.DecodeString(trimmed)
	if err != nil {
		return nil, fmt.Errorf("invalid private key encoding: %w", err)
	}
	return crypto.PrivateKeyFromBytes(bytes)
}

// runDerive prints the id of a record: dipctl derive node forest=0x.. root=music path=jazz/bebop
func runDerive(args []string, out io.Writer) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: dipctl derive <%s> key=value...", strings.Join(index.DeriveKinds, "|"))
	}
	kv := make(map[string]string, len(args)-1)
	for _, arg := range args[1:] {
		k, v, ok := strings.Cut(arg, "=")
		if !ok {
			return fmt.Errorf("argument %q is not key=value", arg)
		}
		kv[k] = v
	}
	id, err := index.Derive(args[0], kv)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, id.Hex())
	return nil
}

func loadKey(path string) (*crypto.PrivateKey, error) {
	pass, err := passphrase.NewSource(passphrase.EnvVar).AllowEmpty().Get()
	if err != nil {
		return nil, err
	}
	key, err := crypto.LoadFromKeystore(path, pass)
	if err != nil {
		return nil, fmt.Errorf("unable to decrypt keystore %s: %w", path, err)
	}
	return key, nil
}

func runApply(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(applyCommand, flag.ExitOnError)
	file := fs.String("file", "", "YAML script of requests to submit")
	server := fs.String("server", "", "Index server URL (overrides the script)")
	keystorePath := fs.String("keystore", defaultKeystore, "Keystore used to sign requests")
	_ = fs.Parse(args)

	if *file == "" {
		return fmt.Errorf("--file is required")
	}
	f, err := os.Open(*file)
	if err != nil {
		return err
	}
	defer f.Close()
	script, err := loadScript(f)
	if err != nil {
		return err
	}
	if *server != "" {
		script.Server = *server
	}
	key, err := loadKey(*keystorePath)
	if err != nil {
		return err
	}
	client := &client{base: script.Server, http: &http.Client{Timeout: 30 * time.Second}}
	return applyScript(client, script, key, out)
}

// runInspect fetches one record: dipctl inspect node 0x..
func runInspect(args []string, out io.Writer) error {
	fs := flag.NewFlagSet(inspectCommand, flag.ExitOnError)
	server := fs.String("server", defaultServer, "Index server URL")
	_ = fs.Parse(args)
	if fs.NArg() != 2 {
		return fmt.Errorf("usage: dipctl inspect [--server url] <forest|tree|node|children|note|stake|bribe|account> <id>")
	}
	c := &client{base: *server, http: &http.Client{Timeout: 30 * time.Second}}
	body, err := c.get(inspectPath(fs.Arg(0), fs.Arg(1)))
	if err != nil {
		return err
	}
	var pretty any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(pretty)
}

func inspectPath(kind, id string) string {
	id = url.PathEscape(id)
	if kind == "children" {
		return "/v1/nodes/" + id + "/children"
	}
	return "/v1/" + kind + "s/" + id
}

func usage() {
	fmt.Println("dipctl <command>")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Printf("  %s     Generate or import an operator keystore\n", keygenCommand)
	fmt.Printf("  %s     Compute a record id from its seeds\n", deriveCommand)
	fmt.Printf("  %s      Submit a YAML script of requests\n", applyCommand)
	fmt.Printf("  %s    Fetch a record from a running server\n", inspectCommand)
}
