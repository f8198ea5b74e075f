package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.skia.org/alertgroups/alertgroup/go/builders"
	"go.skia.org/alertgroups/alertgroup/go/config"
	"go.skia.org/alertgroups/alertgroup/go/frontend"
	"go.skia.org/alertgroups/go/metrics2"
	"go.skia.org/alertgroups/go/skerr"
	"go.skia.org/alertgroups/go/sklog"
	"go.skia.org/alertgroups/go/sklog/stdlogging"
)

var runFlags config.Flags

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the HTTP server and the group scheduler.",
	RunE: func(cmd *cobra.Command, args []string) error {
		sklog.SetLogger(stdlogging.New(os.Stdout, runFlags.Local))

		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		instanceConfig, err := config.InstanceConfigFromFile(ctx, runFlags.ConfigFilename)
		if err != nil {
			return err
		}

		metrics2.InitPrometheus(runFlags.PromPort)

		cmd.LocalFlags().VisitAll(func(f *pflag.Flag) {
			sklog.Infof("Flags: --%s=%v", f.Name, f.Value)
		})

		app, err := builders.NewAppFromConfig(ctx, runFlags.Local, instanceConfig)
		if err != nil {
			return err
		}
		defer app.Close()

		if !runFlags.NoScheduler {
			interval, err := instanceConfig.Scheduler.IntervalDuration()
			if err != nil {
				return err
			}
			go app.Scheduler.Run(ctx, interval)
		}

		srv := &http.Server{
			Addr:    runFlags.Port,
			Handler: frontend.New(app.Scheduler, app.Grouper, app.Stores.Groups, app.Stores.Anomalies).Handler(),
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				sklog.Errorf("Failed to shut down: %s", err)
			}
		}()

		sklog.Infof("Ready to serve on %s", runFlags.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return skerr.Wrap(err)
		}
		sklog.Flush()
		return nil
	},
}

func runInit() {
	rootCmd.AddCommand(runCmd)
	runFlags.Register(runCmd.Flags())
}
