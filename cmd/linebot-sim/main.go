// Command linebot-sim replays a YAML sensor scenario against a robot profile
// on a virtual clock and prints the resulting event and motor trace.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sweeney/linebot/internal/logic"
	"github.com/sweeney/linebot/internal/profile"
	"github.com/sweeney/linebot/internal/sim"
)

func main() {
	scenario := flag.String("scenario", "", "YAML scenario file (required)")
	profileName := flag.String("profile", "", "Built-in robot profile (default: the scenario's, else "+profile.Default+")")
	profileFile := flag.String("profile-file", "", "YAML profile file (overrides -profile)")
	flag.Parse()

	if err := run(os.Stdout, *scenario, *profileName, *profileFile); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}

func run(w io.Writer, scenarioPath, profileName, profileFile string) error {
	if scenarioPath == "" {
		return errors.New("-scenario is required")
	}
	sc, err := sim.Load(scenarioPath)
	if err != nil {
		return err
	}

	cfg, err := resolveProfile(sc, profileName, profileFile)
	if err != nil {
		return err
	}

	res, err := sim.Run(sc, cfg)
	if err != nil {
		return fmt.Errorf("run %s: %w", scenarioPath, err)
	}
	return sim.WriteTrace(w, res)
}

// resolveProfile picks the profile file, then the -profile flag, then the
// scenario's own profile.
func resolveProfile(sc sim.Scenario, name, file string) (logic.RobotConfig, error) {
	if file != "" {
		return profile.Load(file)
	}
	if name == "" {
		name = sc.Profile
	}
	if name == "" {
		name = profile.Default
	}
	return profile.Preset(name)
}
