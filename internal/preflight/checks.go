package preflight

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sys/unix"

	"poolpack/internal/fileutil"
)

const minSecretBytes = 16

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckFreeSpace verifies the filesystem holding path has at least min bytes free.
func CheckFreeSpace(name, path string, min uint64) Result {
	free, err := fileutil.AvailableBytes(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("statfs failed (%v)", err)}
	}
	detail := fmt.Sprintf("%d MiB available", free/(1024*1024))
	if free < min {
		return Result{Name: name, Detail: fmt.Sprintf("%s, %d MiB required", detail, min/(1024*1024))}
	}
	return Result{Name: name, Passed: true, Detail: detail}
}

// CheckSigningSecret verifies a usable token signing secret is configured.
func CheckSigningSecret(secret string) Result {
	const name = "Signing secret"
	switch n := len(strings.TrimSpace(secret)); {
	case n == 0:
		return Result{Name: name, Detail: "missing (set POOLPACK_SIGNING_SECRET)"}
	case n < minSecretBytes:
		return Result{Name: name, Detail: fmt.Sprintf("too short (%d bytes, need %d)", n, minSecretBytes)}
	default:
		return Result{Name: name, Passed: true, Detail: "configured"}
	}
}

// CheckRedis verifies the ledger Redis instance is reachable.
// It uses a 5-second timeout and a single attempt.
func CheckRedis(ctx context.Context, url string) Result {
	const name = "Redis ledger"
	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing url"}
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("invalid url (%v)", err)}
	}
	opts.MaxRetries = -1
	client := redis.NewClient(opts)
	defer client.Close()

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(checkCtx).Err(); err != nil {
		return Result{Name: name, Detail: summarizeRedisError(err)}
	}
	return Result{Name: name, Passed: true, Detail: "Reachable"}
}

// summarizeRedisError produces a human-readable summary for ping failures.
func summarizeRedisError(err error) string {
	if errors.Is(err, context.DeadlineExceeded) {
		return "ping timed out (redis unresponsive)"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "ping timed out (redis unreachable)"
	}
	return err.Error()
}
