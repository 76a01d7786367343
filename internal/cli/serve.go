package cli

import (
	"github.com/spf13/cobra"

	"archtrack/internal/server"
)

var (
	serveAddr string
	serveDB   string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the reference task server",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := serveDB
		if dbPath == "" {
			var err error
			dbPath, err = server.DefaultDBPath()
			if err != nil {
				return err
			}
		}

		db, err := server.OpenDB(dbPath)
		if err != nil {
			return err
		}
		defer db.Close()

		return server.New(db).ListenAndServe(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8090", "listen address")
	serveCmd.Flags().StringVar(&serveDB, "db", "", "sqlite database path")
	rootCmd.AddCommand(serveCmd)
}
