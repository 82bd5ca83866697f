package cmd

import "github.com/spf13/cobra"

func Execute() error {
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "ofs",
		Short:         "Offline-first session CLI (ofs): sign in and browse records with a local cache",
		Long:          "ofs keeps a signed-in session in your secret store, refreshes it when it expires, and serves records from a local SQLite cache whenever the API cannot be reached.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	app, err := wireApp()
	if err != nil {
		rootCmd.RunE = func(_ *cobra.Command, _ []string) error {
			return err
		}
		return rootCmd
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		return app.close()
	}

	rootCmd.AddCommand(
		newVersionCmd(),
		newLoginCmd(app),
		newLogoutCmd(app),
		newSessionCmd(app),
		newWhoamiCmd(app),
		newItemsCmd(app),
	)

	return rootCmd
}
