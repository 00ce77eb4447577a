package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/mkandasamy/deedflow/internal/home"
	"github.com/mkandasamy/deedflow/internal/mongo"
)

var mongoCmd = &cobra.Command{
	Use:   "mongo",
	Short: "Manage the MongoDB container",
	Long: `Manage the MongoDB container lifecycle.

MongoDB is the system of record for processed documents. The database runs
in a Docker container with data persisted to ~/.deedflow/mongo/.

Examples:
  deedflow mongo start   # Start the MongoDB container
  deedflow mongo stop    # Stop the container (data preserved)
  deedflow mongo status  # Check container status
  deedflow mongo logs    # View container logs`,
}

var mongoStartCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the MongoDB container",
	Long: `Start the MongoDB container.

If the container doesn't exist, it will be created and started.
If it exists but is stopped, it will be started.
If it's already running, this is a no-op.

Data is persisted to ~/.deedflow/mongo/.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Starting MongoDB...")
		if err := mgr.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MongoDB: %w", err)
		}

		fmt.Printf("MongoDB is running at %s\n", mgr.URI())
		return nil
	},
}

var mongoStopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop the MongoDB container",
	Long: `Stop the MongoDB container.

This stops the container but preserves data. Use 'deedflow mongo start'
to restart it later.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Stopping MongoDB...")
		if err := mgr.Stop(ctx); err != nil {
			return fmt.Errorf("failed to stop MongoDB: %w", err)
		}

		fmt.Println("MongoDB stopped")
		return nil
	},
}

var mongoStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show MongoDB container status",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		status, err := mgr.Status(ctx)
		if err != nil {
			return fmt.Errorf("failed to get status: %w", err)
		}

		switch status {
		case mongo.StatusRunning:
			fmt.Printf("Status: %s\n", status)
			fmt.Printf("URI: %s\n", mgr.URI())
		case mongo.StatusStopped:
			fmt.Printf("Status: %s (use 'deedflow mongo start' to start)\n", status)
		case mongo.StatusNotFound:
			fmt.Printf("Status: %s (use 'deedflow mongo start' to create)\n", status)
		default:
			fmt.Printf("Status: %s\n", status)
		}

		return nil
	},
}

var mongoLogsTail string

var mongoLogsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show MongoDB container logs",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		logs, err := mgr.Logs(ctx, mongoLogsTail)
		if err != nil {
			return fmt.Errorf("failed to get logs: %w", err)
		}

		fmt.Print(logs)
		return nil
	},
}

var mongoRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Remove the MongoDB container",
	Long: `Remove the MongoDB container.

This stops and removes the container. Data in ~/.deedflow/mongo/
is NOT deleted - only the container is removed.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		fmt.Println("Removing MongoDB container...")
		if err := mgr.Remove(ctx); err != nil {
			return fmt.Errorf("failed to remove container: %w", err)
		}

		fmt.Println("MongoDB container removed (data preserved)")
		return nil
	},
}

var mongoWaitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Wait for MongoDB to be ready",
	Long: `Wait for MongoDB to be ready to accept connections.

This is useful in scripts to ensure MongoDB is fully started
before running other commands.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		mgr, err := getMongoManager()
		if err != nil {
			return err
		}
		defer mgr.Close()

		timeout, _ := cmd.Flags().GetDuration("timeout")
		fmt.Printf("Waiting for MongoDB (timeout: %s)...\n", timeout)

		if err := mgr.WaitReady(ctx, timeout); err != nil {
			return fmt.Errorf("MongoDB not ready: %w", err)
		}

		fmt.Println("MongoDB is ready")
		return nil
	},
}

func init() {
	mongoCmd.AddCommand(mongoStartCmd)
	mongoCmd.AddCommand(mongoStopCmd)
	mongoCmd.AddCommand(mongoStatusCmd)
	mongoCmd.AddCommand(mongoLogsCmd)
	mongoCmd.AddCommand(mongoRemoveCmd)
	mongoCmd.AddCommand(mongoWaitCmd)

	mongoLogsCmd.Flags().StringVar(&mongoLogsTail, "tail", "100", "Number of lines to show from the end")
	mongoWaitCmd.Flags().Duration("timeout", 30*time.Second, "Timeout waiting for MongoDB")

	rootCmd.AddCommand(mongoCmd)
}

// getMongoManager creates a DockerManager with the standard config.
func getMongoManager() (*mongo.DockerManager, error) {
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, fmt.Errorf("failed to create home directory: %w", err)
	}

	return mongo.NewDockerManager(mongo.DockerConfig{
		DataPath: h.MongoDataPath(),
	})
}
