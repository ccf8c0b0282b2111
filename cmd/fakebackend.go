package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fakeyudi/syllabus/internal/backend/fake"
)

var (
	fakeAddr     string
	fakeSyllabus bool
)

var fakeBackendCmd = &cobra.Command{
	Use:    "fake-backend",
	Short:  "Serve an in-memory study backend for offline development",
	Hidden: true,
	Args:   cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		srv := fake.New()
		srv.SetSyllabus(fakeSyllabus)
		srv.Teach("scheduling", "CPU scheduling decides which ready process runs next.")
		srv.Teach("deadlock", "A deadlock needs mutual exclusion, hold and wait, no preemption and circular wait.")

		hs := &http.Server{Addr: fakeAddr, Handler: srv.Handler(), ReadHeaderTimeout: 10 * time.Second}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		go func() {
			<-ctx.Done()
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = hs.Shutdown(sctx)
		}()

		logger.Info("fake backend listening", zap.String("addr", fakeAddr))
		cmd.Printf("Fake backend on http://%s (Ctrl+C to stop)\n", fakeAddr)
		if err := hs.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	fakeBackendCmd.Flags().StringVar(&fakeAddr, "addr", "127.0.0.1:8000", "listen address")
	fakeBackendCmd.Flags().BoolVar(&fakeSyllabus, "syllabus", true, "start with a syllabus already uploaded")
	rootCmd.AddCommand(fakeBackendCmd)
}
