package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/aattila/inverter-11k-modbus-add-on/config"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/api"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/collector"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/discovery"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/inverter"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/modbus"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/mqtt"
	"github.com/aattila/inverter-11k-modbus-add-on/internal/poller"
)

var configFile string

func main() {
	rootCmd := &cobra.Command{
		Use:   "inverter-addon",
		Short: "Solar inverter Modbus to MQTT bridge",
		Long:  "Polls a solar/battery hybrid inverter over Modbus RTU and republishes the telemetry to MQTT with Home Assistant auto-discovery",
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file path")

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(readCmd())
	rootCmd.AddCommand(testCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	setupLogging(cfg.Logging.Level)
	return cfg, nil
}

func setupLogging(level string) {
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	parsed, err := log.ParseLevel(level)
	if err != nil {
		parsed = log.InfoLevel
	}
	log.SetLevel(parsed)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the polling and publishing loop",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			log.Info("Starting inverter data logger")

			modbusClient := modbus.NewClient(cfg.Serial.Interface, cfg.Modbus.ID, cfg.Serial.Timeout)
			if err := modbusClient.Connect(); err != nil {
				return fmt.Errorf("serial initialization failed: %w", err)
			}
			defer modbusClient.Close()
			log.Infof("Initialized serial interface %s for modbus id %d", cfg.Serial.Interface, cfg.Modbus.ID)

			publisher := mqtt.NewPublisher(mqtt.PublisherConfig{
				Host:     cfg.MQTT.Host,
				Port:     cfg.MQTT.Port,
				Username: cfg.MQTT.Username,
				Password: cfg.MQTT.Password,
				ClientID: cfg.MQTT.ClientID,
				Topic:    cfg.MQTT.Topic,
				ModbusID: cfg.Modbus.ID,
			})

			disc := discovery.New(publisher, cfg.MQTT.Topic, cfg.Discovery.Prefix)

			// Discovery runs on every (re)connect so entities survive a
			// broker restart.
			publisher.SetOnConnect(func() {
				if cfg.Discovery.Enabled {
					log.Info("Sending Home Assistant auto-discovery configurations")
					if err := disc.PublishAll(cfg.Modbus.ID, inverter.Registers()); err != nil {
						log.Warnf("Some discovery configs failed: %v", err)
					}
				}
			})

			if err := publisher.Connect(); err != nil {
				return err
			}
			defer publisher.Close()

			p, err := poller.New(poller.Config{
				ReadDelay: cfg.Serial.ReadDelay,
			}, modbusClient, inverter.Registers())
			if err != nil {
				return err
			}

			coll := collector.New(collector.Config{
				Poller:                p,
				Publisher:             publisher,
				Specs:                 inverter.Registers(),
				Interval:              cfg.MQTT.Interval(),
				MaxDataAge:            cfg.MaxDataAge(),
				InvertChargeDischarge: cfg.Discovery.InvertChargeDischarge,
			})

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			go func() {
				if err := coll.Run(ctx); err != nil {
					log.Errorf("Collector error: %v", err)
				}
			}()

			var server *api.Server
			if cfg.Health.Enabled {
				server = api.NewServer(api.ServerConfig{
					Port:            cfg.Health.Port,
					Collector:       coll,
					MaxDataAge:      cfg.MaxDataAge(),
					MQTTConnected:   publisher.IsConnected,
					SerialConnected: modbusClient.IsConnected,
				})
				go func() {
					if err := server.Start(); err != nil {
						log.Errorf("Health server error: %v", err)
					}
				}()
			}

			<-sigChan
			log.Info("Shutting down")
			cancel()
			if server != nil {
				server.Stop(context.Background())
			}

			return nil
		},
	}
}

func readCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "read",
		Short: "Run one poll cycle and print the decoded values",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			client := modbus.NewClient(cfg.Serial.Interface, cfg.Modbus.ID, cfg.Serial.Timeout)
			if err := client.Connect(); err != nil {
				return fmt.Errorf("serial initialization failed: %w", err)
			}
			defer client.Close()

			p, err := poller.New(poller.Config{ReadDelay: cfg.Serial.ReadDelay}, client, inverter.Registers())
			if err != nil {
				return err
			}

			snap, err := p.Poll()
			if err != nil {
				return fmt.Errorf("poll failed: %w", err)
			}

			reading, err := inverter.Decode(snap, inverter.Registers(), cfg.Discovery.InvertChargeDischarge)
			if err != nil {
				return err
			}

			output, _ := json.MarshalIndent(reading.Values, "", "  ")
			fmt.Println(string(output))

			return nil
		},
	}
}

func testCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "test",
		Short: "Test the serial connection to the inverter",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			fmt.Printf("Testing connection to %s (slave %d)...\n", cfg.Serial.Interface, cfg.Modbus.ID)

			client := modbus.NewClient(cfg.Serial.Interface, cfg.Modbus.ID, cfg.Serial.Timeout)
			if err := client.Connect(); err != nil {
				fmt.Printf("Connection FAILED: %v\n", err)
				return err
			}
			defer client.Close()

			// Read the battery block as a smoke test.
			words, err := client.ReadHoldingRegisters(277, 4)
			if err != nil {
				fmt.Printf("Read FAILED: %v\n", err)
				return err
			}

			fmt.Println("Connection SUCCESS!")
			fmt.Printf("\nBattery:\n")
			fmt.Printf("  Voltage: %.1f V\n", float64(words[0])*0.1)
			fmt.Printf("  Current: %.1f A\n", float64(int16(words[1]))*0.1)
			fmt.Printf("  Power:   %d W\n", int16(words[2]))
			fmt.Printf("  SoC:     %d %%\n", words[3])

			return nil
		},
	}
}
