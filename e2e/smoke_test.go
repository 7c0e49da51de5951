//go:build e2e

package e2e

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"
	"testing"
	"time"

	"github.com/docker/docker/api/types/container"
	"github.com/docker/go-connections/nat"
	mqtt "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const repoRootRel = ".." // relative to ./e2e

const mqttPort = nat.Port("1883/tcp")

const fixtureHeader = "No,year,month,day,hour,PM2.5,PM10,SO2,NO2,CO,O3,TEMP,PRES,DEWP,RAIN,wd,WSPM,station,datetime\n"

type healthBody struct {
	Status   string `json:"status"`
	Readings int    `json:"readings"`
}

func TestSmoke_Healthz(t *testing.T) {
	repoRoot := repoRootPath(t)
	bin := buildBinary(t, repoRoot, "./cmd/server")
	addr := pickFreeAddr(t)

	cmd := startProcess(t, bin, nil,
		"HTTP_ADDR="+addr,
		"DATASET_SOURCE=csv",
		"DATASET_PATH="+writeFixture(t, 48),
	)

	client := &http.Client{Timeout: 2 * time.Second}
	base := "http://" + addr

	waitForOK(t, client, base+"/healthz", 10*time.Second)

	body := getHealth(t, client, base+"/healthz")
	if body.Status != "ok" || body.Readings != 48 {
		t.Fatalf("healthz = %+v; want ok with 48 readings", body)
	}

	resp, err := client.Get(base + "/?year=2013&station=Aotizhongxin&resample=Daily")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("GET / status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	stopProcess(t, cmd)
}

// TestSmoke_IngestSubscribe publishes one telemetry message through a real
// broker, lets the ingest command store it, then serves it from SQLite.
func TestSmoke_IngestSubscribe(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)
	sqlitePath := filepath.Join(t.TempDir(), "airquality.db")
	topic := "airquality/telemetry"

	env := []string{
		"SQLITE_PATH=" + sqlitePath,
		"MQTT_BROKER=" + brokerHost,
		"MQTT_PORT=" + brokerPort,
		"MQTT_TOPIC=" + topic,
		"MQTT_CLIENT_ID=e2e-ingest",
	}

	ingest := buildBinary(t, repoRoot, "./cmd/ingest")
	sub := startProcess(t, ingest, []string{"subscribe"}, env...)

	// QoS 1 is not retained for a subscriber that is not connected yet.
	time.Sleep(2 * time.Second)
	publish(t, brokerHost, brokerPort, topic,
		`{"station":"Dongsi","timestamp":"2017-02-28T23:00:00Z","wd":"NW","pm25":12,"pm10":20,"temp":-1.5}`)
	time.Sleep(2 * time.Second)
	stopProcess(t, sub)

	server := buildBinary(t, repoRoot, "./cmd/server")
	addr := pickFreeAddr(t)
	srv := startProcess(t, server, nil, append(env,
		"HTTP_ADDR="+addr,
		"DATASET_SOURCE=sqlite",
	)...)

	client := &http.Client{Timeout: 2 * time.Second}
	waitForOK(t, client, "http://"+addr+"/healthz", 10*time.Second)

	body := getHealth(t, client, "http://"+addr+"/healthz")
	if body.Readings != 1 {
		t.Fatalf("healthz readings=%d want=1", body.Readings)
	}

	stopProcess(t, srv)
}

// TestSmoke_IngestReplay replays a CSV fixture through the broker with the
// ingest command and checks every row reaches the store.
func TestSmoke_IngestReplay(t *testing.T) {
	repoRoot := repoRootPath(t)
	brokerHost, brokerPort := startMosquitto(t)
	sqlitePath := filepath.Join(t.TempDir(), "airquality.db")

	env := []string{
		"SQLITE_PATH=" + sqlitePath,
		"MQTT_BROKER=" + brokerHost,
		"MQTT_PORT=" + brokerPort,
		"MQTT_TOPIC=airquality/telemetry",
		"MQTT_CLIENT_ID=e2e-replay",
	}

	ingest := buildBinary(t, repoRoot, "./cmd/ingest")
	sub := startProcess(t, ingest, []string{"subscribe"}, env...)
	time.Sleep(2 * time.Second)

	rep := startProcess(t, ingest, []string{"replay", writeFixture(t, 6), "50ms"}, env...)
	if err := rep.Wait(); err != nil {
		t.Fatalf("replay: %v", err)
	}
	time.Sleep(2 * time.Second)
	stopProcess(t, sub)

	server := buildBinary(t, repoRoot, "./cmd/server")
	addr := pickFreeAddr(t)
	srv := startProcess(t, server, nil, append(env,
		"HTTP_ADDR="+addr,
		"DATASET_SOURCE=sqlite",
	)...)

	client := &http.Client{Timeout: 2 * time.Second}
	waitForOK(t, client, "http://"+addr+"/healthz", 10*time.Second)

	body := getHealth(t, client, "http://"+addr+"/healthz")
	if body.Readings != 6 {
		t.Fatalf("healthz readings=%d want=6", body.Readings)
	}

	stopProcess(t, srv)
}

func startMosquitto(t *testing.T) (host, port string) {
	t.Helper()
	ctx := context.Background()

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2",
		ExposedPorts: []string{string(mqttPort)},
		// The image ships a config that allows anonymous clients on all interfaces.
		Cmd: []string{"mosquitto", "-c", "/mosquitto-no-auth.conf"},
		HostConfigModifier: func(hc *container.HostConfig) {
			hc.Tmpfs = map[string]string{"/mosquitto/data": "rw"}
		},
		WaitingFor: wait.ForListeningPort(mqttPort).WithStartupTimeout(30 * time.Second),
	}

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start mosquitto container: %v", err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(ctx)
	})

	host, err = c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, mqttPort)
	if err != nil {
		t.Fatalf("mapped port: %v", err)
	}
	return host, mapped.Port()
}

func publish(t *testing.T, host, port, topic, payload string) {
	t.Helper()

	opts := mqtt.NewClientOptions().
		AddBroker(fmt.Sprintf("tcp://%s:%s", host, port)).
		SetClientID("e2e-publisher")
	client := mqtt.NewClient(opts)
	if token := client.Connect(); !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("publisher connect: %v", token.Error())
	}
	defer client.Disconnect(250)

	token := client.Publish(topic, 1, false, payload)
	if !token.WaitTimeout(5*time.Second) || token.Error() != nil {
		t.Fatalf("publish: %v", token.Error())
	}
}

func writeFixture(t *testing.T, hours int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString(fixtureHeader)
	start := time.Date(2013, 3, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < hours; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		fmt.Fprintf(&b, "%d,%d,%d,%d,%d,%d,%d,4,7,300,77,-0.7,1023,-18.8,0,NNW,4.4,Aotizhongxin,%s\n",
			i+1, ts.Year(), ts.Month(), ts.Day(), ts.Hour(), 3+i%5, 6+i%9, ts.Format("2006-01-02 15:04:05"))
	}
	path := filepath.Join(t.TempDir(), "merged.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write fixture: %v", err)
	}
	return path
}

func repoRootPath(t *testing.T) string {
	t.Helper()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}

	repo := filepath.Clean(filepath.Join(wd, repoRootRel))
	if _, err := os.Stat(filepath.Join(repo, "go.mod")); err != nil {
		t.Fatalf("repo root %q does not contain go.mod: %v", repo, err)
	}

	return repo
}

func buildBinary(t *testing.T, repoRoot, pkg string) string {
	t.Helper()

	out := filepath.Join(t.TempDir(), filepath.Base(pkg))

	build := exec.Command("go", "build", "-o", out, pkg)
	build.Dir = repoRoot
	build.Env = os.Environ()

	b, err := build.CombinedOutput()
	if err != nil {
		t.Fatalf("go build %s failed: %v\n%s", pkg, err, string(b))
	}

	return out
}

func startProcess(t *testing.T, bin string, args []string, env ...string) *exec.Cmd {
	t.Helper()

	cmd := exec.Command(bin, args...)
	cmd.Env = append(os.Environ(), "APP_ENV=dev", "LOG_LEVEL=info")
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		t.Fatalf("start %s: %v", bin, err)
	}
	t.Cleanup(func() {
		if cmd.ProcessState == nil {
			_ = cmd.Process.Kill()
			_, _ = cmd.Process.Wait()
		}
	})
	return cmd
}

func getHealth(t *testing.T, client *http.Client, url string) healthBody {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status=%d want=%d", resp.StatusCode, http.StatusOK)
	}

	var body healthBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode json: %v", err)
	}
	return body
}

func pickFreeAddr(t *testing.T) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen :0: %v", err)
	}
	defer ln.Close()

	return ln.Addr().String()
}

func waitForOK(t *testing.T, client *http.Client, url string, timeout time.Duration) {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	t.Fatalf("server not healthy after %s: %s", timeout, url)
}

func stopProcess(t *testing.T, cmd *exec.Cmd) {
	t.Helper()

	_ = cmd.Process.Signal(syscall.SIGTERM)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case <-ctx.Done():
		_ = cmd.Process.Kill()
		t.Fatalf("process did not exit in time")
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				t.Fatalf("process exited non-zero: %v", err)
			}
			t.Fatalf("process wait error: %v", err)
		}
	}
}
