package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shandysiswandi/otpbridge/internal/retriever/adapter"
	"github.com/shandysiswandi/otpbridge/internal/retriever/client"
	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
	"github.com/spf13/cobra"
)

type simulateFlags struct {
	code    string
	message string
	status  string
}

func runStart(cmd *cobra.Command, c *client.Client) error {
	if err := c.StartListener(cmd.Context()); err != nil {
		return fmt.Errorf("start listener: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "SMS listener is starting")
	return nil
}

func runWait(cmd *cobra.Command, c *client.Client, timeout time.Duration) error {
	code, err := c.StartAndWait(cmd.Context(), timeout)
	if err != nil {
		return fmt.Errorf("wait for code: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), code)
	return nil
}

func runStop(cmd *cobra.Command, c *client.Client) error {
	if err := c.StopListener(cmd.Context()); err != nil {
		return fmt.Errorf("stop listener: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "SMS listener stopped")
	return nil
}

func runStatus(cmd *cobra.Command, c *client.Client) error {
	st, err := c.GetStatus(cmd.Context())
	if err != nil {
		return fmt.Errorf("get status: %w", err)
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(st)
}

func runHash(cmd *cobra.Command, c *client.Client) error {
	hash, err := c.GetAppHash(cmd.Context())
	if err != nil {
		return fmt.Errorf("get app hash: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), hash)
	return nil
}

func runSimulate(cmd *cobra.Command, c *client.Client, in simulateFlags) error {
	req := client.SimulateRequest{Code: in.code, Status: in.status}
	if in.message != "" {
		req.Message = &in.message
	}

	out, err := c.Simulate(cmd.Context(), req)
	if err != nil {
		return fmt.Errorf("simulate delivery: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "published %s\n%s\n", out.ID, out.Message)
	return nil
}

// runWatch prints every outcome until SIGINT or SIGTERM. With autoStart the
// listener is restarted after each one.
func runWatch(cmd *cobra.Command, c *client.Client, autoStart bool) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	var ad *adapter.Adapter
	restart := func() {
		if !autoStart {
			return
		}
		if err := ad.Start(ctx); err != nil {
			fmt.Fprintf(out, "restart failed: %v\n", err)
		}
	}

	ad = adapter.New(c, adapter.Options{
		AutoStart: autoStart,
		OnSuccess: func(code string) {
			fmt.Fprintf(out, "code: %s\n", code)
			restart()
		},
		OnError: func(info entity.ErrorInfo) {
			fmt.Fprintf(out, "error: %s\n", info.Error())
			restart()
		},
	})

	if err := ad.Init(ctx); err != nil {
		return fmt.Errorf("init listener: %w", err)
	}
	fmt.Fprintf(out, "app hash: %s\n", ad.State().AppHash)

	<-ctx.Done()

	closeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	return ad.Close(closeCtx)
}
