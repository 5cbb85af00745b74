// Command castctl drives a Cast device end to end from the command line:
// connect, launch the default media receiver, load a URL, and issue
// transport controls. Device discovery stays a declared collaborator
// (spec.md §1) — the address is a plain -addr flag here, not mDNS.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"time"

	"castclient/cast"
)

func main() {
	addr := flag.String("addr", "", "device address, host:port (default port 8009)")
	contentURL := flag.String("url", "", "content URL to LOAD (used with -cmd load)")
	contentType := flag.String("content-type", "video/mp4", "contentType for -cmd load")
	seekTime := flag.Float64("seek-time", 0, "currentTime in seconds for -cmd seek")
	volumeLevel := flag.Float64("volume", -1, "volume level 0.0-1.0 for -cmd volume (omit to leave unchanged)")
	cmd := flag.String("cmd", "status", "one of: launch, load, play, pause, stop, seek, status, volume, watch")
	timeout := flag.Duration("timeout", 10*time.Second, "per-command request timeout")
	flag.Parse()

	if *addr == "" {
		fmt.Fprintln(os.Stderr, "castctl: -addr is required")
		os.Exit(2)
	}
	host, portStr, err := splitAddr(*addr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "castctl: %v\n", err)
		os.Exit(2)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		fmt.Fprintf(os.Stderr, "castctl: invalid port %q\n", portStr)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	client, err := cast.Connect(ctx, host, port, cast.WithRequestTimeout(*timeout))
	if err != nil {
		log.Fatalf("[castctl] connect: %v", err)
	}
	defer client.Shutdown()

	if err := run(ctx, client, *cmd, *contentURL, *contentType, *seekTime, *volumeLevel); err != nil {
		log.Fatalf("[castctl] %s: %v", *cmd, err)
	}
}

// splitAddr accepts "host" or "host:port" and defaults the Cast receiver
// port (8009) when absent.
func splitAddr(raw string) (host, port string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", fmt.Errorf("address is required")
	}
	if i := strings.LastIndex(raw, ":"); i >= 0 {
		return raw[:i], raw[i+1:], nil
	}
	return raw, "8009", nil
}

func run(ctx context.Context, c *cast.Client, cmd, url, contentType string, seekTime, volumeLevel float64) error {
	switch cmd {
	case "launch":
		sess, err := c.LaunchDefaultReceiver(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("launched %s (session=%s transport=%s)\n", sess.AppID, sess.SessionID, sess.TransportID)
		return nil

	case "load":
		if url == "" {
			return fmt.Errorf("-url is required for -cmd load")
		}
		st, err := c.Load(ctx, cast.MediaInfo{ContentID: url, ContentType: contentType}, nil, true)
		if err != nil {
			return err
		}
		fmt.Printf("loaded mediaSessionId=%d state=%s\n", st.MediaSessionID, st.PlayerState)
		return nil

	case "play":
		st, err := c.Play(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("state=%s\n", st.PlayerState)
		return nil

	case "pause":
		st, err := c.Pause(ctx)
		if err != nil {
			return err
		}
		fmt.Printf("state=%s\n", st.PlayerState)
		return nil

	case "stop":
		return c.Stop(ctx)

	case "seek":
		st, err := c.Seek(ctx, seekTime, "")
		if err != nil {
			return err
		}
		fmt.Printf("state=%s currentTime=%.1f\n", st.PlayerState, st.CurrentTime)
		return nil

	case "status":
		st, ok := c.CurrentMediaStatus()
		if !ok {
			st, err := c.MediaGetStatus(ctx)
			if err != nil {
				rs, rerr := c.ReceiverGetStatus(ctx)
				if rerr != nil {
					return err
				}
				fmt.Printf("no media session; receiver volume level=%v muted=%v\n", rs.Volume.Level, rs.Volume.Muted)
				return nil
			}
			fmt.Printf("state=%s currentTime=%.1f\n", st.PlayerState, st.CurrentTime)
			return nil
		}
		fmt.Printf("state=%s currentTime=%.1f\n", st.PlayerState, st.CurrentTime)
		return nil

	case "volume":
		var level *float64
		if volumeLevel >= 0 {
			level = &volumeLevel
		}
		return c.SetVolume(level, nil)

	case "watch":
		for ev := range c.Events() {
			fmt.Printf("event: %s\n", ev.Kind)
			if ev.Kind == cast.EventDisconnected {
				return ev.Err
			}
		}
		return nil

	default:
		return fmt.Errorf("unknown -cmd %q", cmd)
	}
}
