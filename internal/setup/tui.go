// Package setup provides the terminal configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/signalbot/config"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes config.gen.yaml.
func RunTUI() error {
	var (
		defaultLeverageStr string
		defaultRiskStr     string
		maxLeverageStr     string
		maxRiskStr         string
		network            string
		listenAddr         string
		walDir             string
		pollTimeoutStr     string
		confirm            bool
	)

	// defaults
	defaultLeverageStr = "10"
	defaultRiskStr = "5"
	maxLeverageStr = "50"
	maxRiskStr = "10"
	network = "mainnet"
	listenAddr = "localhost:8088"
	walDir = "./wal"
	pollTimeoutStr = "30s"

	// step 1: welcome
	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("SIGNALBOT CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Let's get your signal relay configured.\n"))

	// trading defaults
	fmt.Println(stepStyle.Render("STEP 1: TRADING DEFAULTS"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Default Leverage").
				Description("Applied to new users until they change it (e.g. 10)").
				Value(&defaultLeverageStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Default Risk % per trade").
				Description("Percent of balance committed per signal (e.g. 5)").
				Value(&defaultRiskStr).
				Validate(validatePercent),
		),
	).Run()
	if err != nil {
		return err
	}

	// bounds
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SIGNALBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: LIMITS"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Max Leverage").
				Description("Hard cap for any user setting (e.g. 50)").
				Value(&maxLeverageStr).
				Validate(validatePositiveInt),
			huh.NewInput().
				Title("Max Risk %").
				Description("Hard cap for any user setting (e.g. 10)").
				Value(&maxRiskStr).
				Validate(validatePercent),
		),
	).Run()
	if err != nil {
		return err
	}

	// network
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SIGNALBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: NETWORK"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Bybit Network").
				Options(
					huh.NewOption("Mainnet", "mainnet"),
					huh.NewOption("Testnet", "testnet"),
				).
				Value(&network),
		),
	).Run()
	if err != nil {
		return err
	}

	// runtime
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SIGNALBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 4: RUNTIME"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Dashboard Listen Address").
				Value(&listenAddr),
			huh.NewInput().
				Title("WAL Directory").
				Description("Where user settings and the order journal are stored").
				Value(&walDir),
			huh.NewInput().
				Title("Telegram Poll Timeout").
				Description("Duration string (e.g. 30s)").
				Value(&pollTimeoutStr).
				Validate(func(s string) error {
					_, err := time.ParseDuration(s)
					return err
				}),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("SIGNALBOT CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"Default Leverage: %sx\nDefault Risk: %s%%\nMax Leverage: %sx\nMax Risk: %s%%\nNetwork: %s\nDashboard: %s\n",
		defaultLeverageStr, defaultRiskStr, maxLeverageStr, maxRiskStr, network, listenAddr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	defaultLeverage, _ := strconv.Atoi(defaultLeverageStr)
	maxLeverage, _ := strconv.Atoi(maxLeverageStr)
	pollTimeout, _ := time.ParseDuration(pollTimeoutStr)

	cfgTmp := config.ConfigTmp{
		DefaultLeverage: defaultLeverage,
		DefaultRiskStr:  defaultRiskStr,
		MaxLeverage:     maxLeverage,
		MaxRiskStr:      maxRiskStr,
		Testnet:         network == "testnet",
		WalDir:          walDir,
		ListenAddr:      listenAddr,
		PollTimeout:     pollTimeout,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\nConfiguration saved to %s", filename)))
	return nil
}

func validatePositiveInt(s string) error {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return fmt.Errorf("must be a positive integer")
	}
	return nil
}

func validatePercent(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) || d.GreaterThan(decimal.NewFromInt(100)) {
		return fmt.Errorf("must be between 0 and 100")
	}
	return nil
}
