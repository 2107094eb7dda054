package main

import (
	"fmt"
	"log"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/golem/orderbook/pkg/orderbook"
	"github.com/golem/orderbook/pkg/server"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "golem",
		Short: "a limit order book in Go",
		Run: func(cmd *cobra.Command, args []string) {
			motd()

			cfg := orderbook.Config{
				OutlierFactor: decimal.NewFromFloat(viper.GetFloat64("outlier-factor")),
				DisplayCutoff: viper.GetInt("display-cutoff"),
			}
			book := orderbook.NewWithConfig(cfg)

			log.Printf("golem starting with outlier-factor=%s display-cutoff=%d",
				cfg.OutlierFactor, cfg.DisplayCutoff)

			eng := server.NewServer(book)
			if err := eng.Run(); err != nil {
				log.Fatalf("server exited: %+v", err)
			}
		},
	}

	rootCmd.PersistentFlags().String("config", "", "config file path (default is $HOME/.golem.yaml); bound in viper, the file itself is not read")
	viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	viper.SetDefault("config", "$HOME/.golem.yaml")

	rootCmd.PersistentFlags().Float64("outlier-factor", 2.0, "drop bids below the last new best bid divided by this factor, and asks above the last new best ask times it")
	viper.BindPFlag("outlier-factor", rootCmd.PersistentFlags().Lookup("outlier-factor"))
	viper.SetDefault("outlier-factor", 2.0)

	rootCmd.PersistentFlags().Int("display-cutoff", 1000, "node count above which Display summarizes instead of dumping a side in full")
	viper.BindPFlag("display-cutoff", rootCmd.PersistentFlags().Lookup("display-cutoff"))
	viper.SetDefault("display-cutoff", 1000)

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
	}
}

func motd() {
	fmt.Printf(`
														$$\
														$$ |
				 $$$$$$\   $$$$$$\  $$ | $$$$$$\  $$$$$$\$$$$\
				$$  __$$\ $$  __$$\ $$ |$$  __$$\ $$  _$$  _$$\
				$$ /  $$ |$$ /  $$ |$$ |$$$$$$$$ |$$ / $$ / $$ |
				$$ |  $$ |$$ |  $$ |$$ |$$   ____|$$ | $$ | $$ |
				\$$$$$$$ |\$$$$$$  |$$ |\$$$$$$$\ $$ | $$ | $$ |
				 \____$$ | \______/ \__| \_______|\__| \__| \__|
				$$\   $$ |
				\$$$$$$  |
				 \______/
			`)
}
