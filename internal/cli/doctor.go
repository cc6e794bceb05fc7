package cli

import (
	"fmt"
	"net"
	"runtime"

	"github.com/spf13/cobra"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check environment and print connection info",
	Long:  `Validates the local environment, checks port availability, and provides connection examples.`,
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func runDoctor(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, "Synheart Physio Environment Check")
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Go Version:        %s\n", runtime.Version())
	fmt.Fprintf(out, "OS/Arch:           %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if configFile != "" {
		fmt.Fprintf(out, "Config:            %s\n\n", configFile)
	} else {
		fmt.Fprintf(out, "Config:            defaults (no physio.yaml found)\n\n")
	}

	if dir := getPresetsDir(); dir != "" {
		fmt.Fprintf(out, "[ok]   Presets directory found: %s\n", dir)
	} else {
		fmt.Fprintln(out, "[info] No presets directory, using built-in and bundled presets")
	}
	registry, err := loadRegistry()
	if err != nil {
		fmt.Fprintf(out, "[fail] %v\n\n", err)
	} else {
		presets := registry.List()
		fmt.Fprintf(out, "       Found %d presets: %v\n\n", len(presets), presets)
	}

	host := cfg.Stream.Host
	base := cfg.Stream.Port
	ports := []struct {
		name string
		port int
		udp  bool
	}{
		{"WebSocket", base, false},
		{"SSE", base + 1, false},
		{"UDP", base + 2, true},
		{"API", cfg.API.Port, false},
	}
	for _, p := range ports {
		if isPortAvailable(host, p.port, p.udp) {
			fmt.Fprintf(out, "[ok]   %-9s port %d is available\n", p.name, p.port)
		} else {
			fmt.Fprintf(out, "[warn] %-9s port %d is in use\n", p.name, p.port)
		}
	}
	fmt.Fprintln(out, "       Use --port to pick different ports")
	fmt.Fprintln(out)

	ws := fmt.Sprintf("ws://localhost:%d/physio", base)
	fmt.Fprintln(out, "Connection Examples:")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "JavaScript/Node.js:")
	fmt.Fprintf(out, "  const ws = new WebSocket('%s?modality=ecg');\n", ws)
	fmt.Fprintln(out, "  ws.onmessage = (event) => {")
	fmt.Fprintln(out, "    const chunk = JSON.parse(event.data);")
	fmt.Fprintln(out, "    console.log(chunk.signal.modality, chunk.signal.samples.length);")
	fmt.Fprintln(out, "  };")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Python:")
	fmt.Fprintln(out, "  import websocket, json")
	fmt.Fprintln(out, "  ws = websocket.WebSocket()")
	fmt.Fprintf(out, "  ws.connect('%s')\n", ws)
	fmt.Fprintln(out, "  while True:")
	fmt.Fprintln(out, "    chunk = json.loads(ws.recv())")
	fmt.Fprintln(out, "    print(chunk['signal']['modality'])")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Go:")
	fmt.Fprintf(out, "  conn, _, err := websocket.DefaultDialer.Dial(%q, nil)\n", ws)
	fmt.Fprintln(out, "  for {")
	fmt.Fprintln(out, "    _, message, err := conn.ReadMessage()")
	fmt.Fprintln(out, "    var event models.Event")
	fmt.Fprintln(out, "    json.Unmarshal(message, &event)")
	fmt.Fprintln(out, "  }")
	fmt.Fprintln(out)

	fmt.Fprintln(out, "curl (SSE):")
	fmt.Fprintf(out, "  curl -N http://localhost:%d/physio/sse\n", base+1)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "UDP:")
	fmt.Fprintf(out, "  echo 'subscribe ecg' | nc -u localhost %d\n", base+2)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Environment check complete")
	return nil
}

func isPortAvailable(host string, port int, udp bool) bool {
	addr := net.JoinHostPort(host, fmt.Sprint(port))
	if udp {
		conn, err := net.ListenPacket("udp", addr)
		if err != nil {
			return false
		}
		conn.Close()
		return true
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return false
	}
	listener.Close()
	return true
}
