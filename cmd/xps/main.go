// Command xps is a terminal client for Newport XPS motion controllers.
//
// Usage:
//
//	xps -addr 192.168.0.254 status
//	xps -addr 192.168.0.254 initialize FINE
//	xps -addr 192.168.0.254 home all
//	xps -addr 192.168.0.254 download-ini system.ini
package main

import (
	"flag"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/theckman/yacspin"

	"github.com/beamline-tools/newportxps/xps"
)

func usage() {
	fmt.Fprintf(os.Stderr, `usage: xps [flags] <command> [args]

commands:
  status                  print the full status report
  groups                  list groups and their positioners
  stages                  list stages with limits
  initialize <group|all>  initialize a group
  home <group|all>        run the home search
  enable <group|all>      enable motion
  disable <group|all>     disable motion
  kill <group|all>        cut motor power
  move <stage> <pos>      absolute move of one stage
  pos <stage>             print the position of one stage
  elapsed                 print seconds since controller boot
  reboot                  reboot the controller and wait for it
  download-ini <path>     save system.ini locally
  upload-ini <path>       replace system.ini (reboot required)
  download-stages <path>  save stages.ini locally
  upload-stages <path>    replace stages.ini (reboot required)
  scripts                 list TCL scripts on the controller

flags:
`)
	flag.PrintDefaults()
}

func spin(msg string) func() {
	cfg := yacspin.Config{
		Frequency:       100 * time.Millisecond,
		CharSet:         yacspin.CharSets[59],
		Suffix:          " " + msg,
		SuffixAutoColon: true,
		StopCharacter:   "done",
	}
	s, err := yacspin.New(cfg)
	if err != nil {
		return func() {}
	}
	s.Start()
	return func() { s.Stop() }
}

// groupwise runs f on one group, or every group for "all"
func groupwise(c *xps.Controller, target string, one func(string) error, all func() error) error {
	if target == "all" {
		return all()
	}
	return one(target)
}

func main() {
	var (
		addr = flag.String("addr", "", "controller address, host or host:port")
		user = flag.String("user", xps.DefaultUsername, "login username")
		pass = flag.String("pass", xps.DefaultPassword, "login password")
	)
	flag.Usage = usage
	flag.Parse()
	args := flag.Args()
	if *addr == "" || len(args) == 0 {
		usage()
		os.Exit(2)
	}

	c := xps.New(*addr)
	c.Username = *user
	c.Password = *pass
	stop := spin("connecting to " + *addr)
	err := c.Connect()
	stop()
	if err != nil {
		fatal(err)
	}
	defer c.Close()

	cmd := args[0]
	args = args[1:]
	switch cmd {
	case "status":
		report, err := c.StatusReport()
		if err != nil {
			fatal(err)
		}
		fmt.Println(report)
	case "groups":
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "GROUP\tCATEGORY\tPOSITIONERS")
		for _, name := range c.GroupNames() {
			g, _ := c.Group(name)
			fmt.Fprintf(tw, "%s\t%s\t%v\n", g.Name, g.Category, g.Positioners)
		}
		tw.Flush()
	case "stages":
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "STAGE\tTYPE\tMAX VELO\tMAX ACCEL\tLOW\tHIGH")
		for label, s := range c.Stages() {
			fmt.Fprintf(tw, "%s\t%s\t%g\t%g\t%g\t%g\n",
				label, s.Type, s.MaxVelocity, s.MaxAccel, s.LowLimit, s.HighLimit)
		}
		tw.Flush()
	case "initialize":
		requireArgs(args, 1)
		stop := spin("initializing " + args[0])
		err := groupwise(c, args[0], c.InitializeGroup, c.InitializeAll)
		stop()
		check(err)
	case "home":
		requireArgs(args, 1)
		stop := spin("homing " + args[0])
		err := groupwise(c, args[0], c.HomeGroup, c.HomeAll)
		stop()
		check(err)
	case "enable":
		requireArgs(args, 1)
		check(groupwise(c, args[0], c.EnableGroup, c.EnableAll))
	case "disable":
		requireArgs(args, 1)
		check(groupwise(c, args[0], c.DisableGroup, c.DisableAll))
	case "kill":
		requireArgs(args, 1)
		check(groupwise(c, args[0], c.KillGroup, c.KillAll))
	case "move":
		requireArgs(args, 2)
		var pos float64
		if _, err := fmt.Sscanf(args[1], "%g", &pos); err != nil {
			fatal(fmt.Errorf("bad position %q: %w", args[1], err))
		}
		check(c.MoveStage(args[0], pos, false))
	case "pos":
		requireArgs(args, 1)
		pos, err := c.StagePosition(args[0])
		if err != nil {
			fatal(err)
		}
		fmt.Println(pos)
	case "elapsed":
		et, err := c.ElapsedTime()
		if err != nil {
			fatal(err)
		}
		fmt.Printf("%.1f\n", et)
	case "reboot":
		stop := spin("rebooting, this takes about 30 seconds")
		err := c.Reboot(2 * time.Minute)
		stop()
		check(err)
	case "download-ini":
		requireArgs(args, 1)
		text, err := c.DownloadSystemINI()
		if err != nil {
			fatal(err)
		}
		check(os.WriteFile(args[0], []byte(text), 0644))
	case "upload-ini":
		requireArgs(args, 1)
		b, err := os.ReadFile(args[0])
		if err != nil {
			fatal(err)
		}
		check(c.UploadSystemINI(string(b)))
		fmt.Println("uploaded; reboot the controller for it to take effect")
	case "download-stages":
		requireArgs(args, 1)
		text, err := c.DownloadStagesINI()
		if err != nil {
			fatal(err)
		}
		check(os.WriteFile(args[0], []byte(text), 0644))
	case "upload-stages":
		requireArgs(args, 1)
		b, err := os.ReadFile(args[0])
		if err != nil {
			fatal(err)
		}
		check(c.UploadStagesINI(string(b)))
		fmt.Println("uploaded; reboot the controller for it to take effect")
	case "scripts":
		names, err := c.ListScripts()
		if err != nil {
			fatal(err)
		}
		for _, n := range names {
			fmt.Println(n)
		}
	default:
		usage()
		os.Exit(2)
	}
}

func requireArgs(args []string, n int) {
	if len(args) < n {
		usage()
		os.Exit(2)
	}
}

func check(err error) {
	if err != nil {
		fatal(err)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "xps:", err)
	os.Exit(1)
}
