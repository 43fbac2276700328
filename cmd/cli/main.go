// Command cli is a thin HTTP client for the print engine server, meant for
// operators and scripts. All logic lives server-side.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
)

const defaultServerURL = "http://localhost:12212"

func main() {
	var serverURL string
	flag.StringVar(&serverURL, "server", defaultServerURL, "Server URL")
	flag.StringVar(&serverURL, "s", defaultServerURL, "Server URL (short)")
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	client := &client{baseURL: serverURL}

	var err error
	switch args[0] {
	case "printers":
		err = client.get("/printers")
	case "connect":
		if len(args) < 2 {
			err = fmt.Errorf("usage: connect <role>")
			break
		}
		err = client.post("/printers/connect", map[string]string{"role": args[1]})
	case "disconnect":
		if len(args) < 2 {
			err = fmt.Errorf("usage: disconnect <printer-id>")
			break
		}
		err = client.delete("/printers/" + args[1])
	case "test":
		if len(args) < 2 {
			err = fmt.Errorf("usage: test <printer-id>")
			break
		}
		err = client.post("/printers/"+args[1]+"/test", nil)
	case "config":
		err = client.configCmd(args[1:])
	case "print":
		err = client.printCmd(args[1:])
	case "history":
		path := "/history"
		if len(args) > 1 {
			path += "?limit=" + args[1]
		}
		err = client.get(path)
	case "stats":
		err = client.get("/statistics")
	default:
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type client struct {
	baseURL string
}

// configCmd shows a role's config, or updates it from key=value pairs.
func (c *client) configCmd(args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("usage: config <role> [auto_reconnect=bool paper_width_mm=58|80 copies=n notify_on_print=bool]")
	}
	role := args[0]
	if len(args) == 1 {
		return c.get("/config/" + role)
	}

	// Fetch first so a partial update keeps the other fields.
	current, err := c.fetch(http.MethodGet, "/config/"+role, nil)
	if err != nil {
		return err
	}
	var cfg map[string]interface{}
	if err := json.Unmarshal(current, &cfg); err != nil {
		return err
	}

	for _, pair := range args[1:] {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("expected key=value, got %q", pair)
		}

		switch key {
		case "auto_reconnect", "notify_on_print":
			b, err := strconv.ParseBool(value)
			if err != nil {
				return fmt.Errorf("%s must be a bool: %w", key, err)
			}
			cfg[key] = b
		case "paper_width_mm", "copies":
			n, err := strconv.Atoi(value)
			if err != nil {
				return fmt.Errorf("%s must be a number: %w", key, err)
			}
			cfg[key] = n
		default:
			return fmt.Errorf("unknown config key: %s", key)
		}
	}

	return c.put("/config/"+role, cfg)
}

// printCmd sends a document file to a role: print <role> <document.json>.
// The file holds the typed document envelope.
func (c *client) printCmd(args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: print <role> <document.json>")
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("failed to read document: %w", err)
	}

	var envelope json.RawMessage = data
	return c.post("/print", map[string]interface{}{
		"role":     args[0],
		"document": envelope,
	})
}

func (c *client) get(path string) error {
	return c.do(http.MethodGet, path, nil)
}

func (c *client) post(path string, body interface{}) error {
	return c.do(http.MethodPost, path, body)
}

func (c *client) put(path string, body interface{}) error {
	return c.do(http.MethodPut, path, body)
}

func (c *client) delete(path string) error {
	return c.do(http.MethodDelete, path, nil)
}

func (c *client) do(method, path string, body interface{}) error {
	data, err := c.fetch(method, path, body)
	if err != nil {
		return err
	}

	// Pretty-print whatever the server returned.
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		fmt.Println(string(data))
		return nil
	}
	fmt.Println(pretty.String())
	return nil
}

func (c *client) fetch(method, path string, body interface{}) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, string(data))
	}
	return data, nil
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `Print Engine CLI

Usage:
  print-cli [flags] <command>

Flags:
  -s, -server <url>    Server URL (default: %s)

Commands:
  printers
    List registered printers and their status

  connect <role>
    Pair the next available USB printer to a role (receipt|kitchen|invoice)

  disconnect <printer-id>
    Forget a printer

  test <printer-id>
    Send a test page

  config <role> [key=value ...]
    Show or update a role's print config
    Keys: auto_reconnect, paper_width_mm (58|80), copies, notify_on_print

  print <role> <document.json>
    Print a document envelope file to the role's printer

  history [limit]
    Show recent print attempts

  stats
    Show aggregate print statistics
`, defaultServerURL)
}
