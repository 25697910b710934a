package integration

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"strconv"
	"syscall"
	"time"

	// revive:disable:dot-imports
	. "github.com/onsi/gomega"
	// revive:enable:dot-imports
)

var runningSites = make(map[int]*exec.Cmd)

func siteURL(port int, path string) string {
	return fmt.Sprintf("http://127.0.0.1:%d%s", port, path)
}

func startSite(port, apiPort int, cms *fakeCMS, extraEnv []string) error {
	host := "localhost"
	pubAddr := net.JoinHostPort(host, strconv.Itoa(port))
	apiAddr := net.JoinHostPort(host, strconv.Itoa(apiPort))

	bin := os.Getenv("BINARY")
	if bin == "" {
		bin = "../riftsurge"
	}
	cmd := exec.Command(bin, "serve")

	cmd.Env = append(cmd.Environ(), fmt.Sprintf("SITE_PUBADDR=%s", pubAddr))
	cmd.Env = append(cmd.Env, fmt.Sprintf("SITE_APIADDR=%s", apiAddr))
	cmd.Env = append(cmd.Env, fmt.Sprintf("CONTENT_API_URL=%s", cms.Endpoint()))
	cmd.Env = append(cmd.Env, "SITE_CONTENT_TIMEOUT=2s")
	cmd.Env = append(cmd.Env, extraEnv...)

	if os.Getenv("SITE_DEBUG_TESTS") != "" {
		cmd.Stdout = os.Stdout
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return err
	}

	waitForServerUp(pubAddr)

	runningSites[port] = cmd
	return nil
}

func stopSite(port int) {
	cmd := runningSites[port]
	if cmd != nil && cmd.Process != nil {
		err := cmd.Process.Signal(syscall.SIGINT)
		Expect(err).NotTo(HaveOccurred())
		_, err = cmd.Process.Wait()
		Expect(err).NotTo(HaveOccurred())
	}
	delete(runningSites, port)
}

func waitForServerUp(addr string) {
	for range 20 {
		conn, err := net.Dial("tcp", addr)
		if err == nil {
			conn.Close()
			return
		}
		time.Sleep(100 * time.Millisecond)
	}
	panic("Server not accepting connections after 20 attempts")
}

var client = &http.Client{
	CheckRedirect: func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	},
}

func doRequest(method, url string) *http.Response {
	req, err := http.NewRequest(method, url, http.NoBody)
	Expect(err).NotTo(HaveOccurred())
	resp, err := client.Do(req)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func siteRequest(path string) *http.Response {
	return doRequest(http.MethodGet, siteURL(sitePort, path))
}

func readBody(resp *http.Response) string {
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(b)
}
