package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"runtime"
	"runtime/pprof"
	"strings"

	"github.com/spf13/viper"
	"github.com/usnistgov/kinegraph"
	"gopkg.in/natefinch/lumberjack.v2"
)

var githash = "githash not computed"
var gitdate = "git date not computed"
var buildDate = "build date not computed"

// makeFileExist checks that dir/filename exists, and creates the directory
// and file if it doesn't.
func makeFileExist(dir, filename string) (string, error) {
	// Replace 1 instance of "$HOME" in the path with the actual home directory.
	if strings.Contains(dir, "$HOME") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dir = strings.Replace(dir, "$HOME", home, 1)
	}

	if _, err := os.Stat(dir); err != nil {
		if !os.IsNotExist(err) {
			return "", err
		}
		if err2 := os.MkdirAll(dir, 0775); err2 != nil {
			return "", err2
		}
	}

	// Create an empty file path/filename, if it doesn't exist.
	fullname := path.Join(dir, filename)
	_, err := os.Stat(fullname)
	if os.IsNotExist(err) {
		f, err2 := os.OpenFile(fullname, os.O_WRONLY|os.O_CREATE, 0664)
		if err2 != nil {
			return "", err2
		}
		f.Close()
	}
	return fullname, nil
}

// setupViper sets up the viper configuration manager: says where to find config
// files and the filename and suffix.
func setupViper() error {
	HOME, err := os.UserHomeDir()
	if err != nil {
		fmt.Printf("Error finding User Home Dir: %s\n", err)
	}
	dotKinegraph := filepath.Join(HOME, ".kinegraph")
	const filename string = "config"
	const suffix string = ".yaml"
	if _, err := makeFileExist(dotKinegraph, filename+suffix); err != nil {
		return err
	}

	viper.SetConfigName(filename)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(filepath.FromSlash("/etc/kinegraph"))
	viper.AddConfigPath(dotKinegraph)
	viper.AddConfigPath(".")
	if err := viper.ReadInConfig(); err != nil {
		return fmt.Errorf("error reading config file: %s", err)
	}
	return nil
}

func startLogger(pfname string) *log.Logger {
	probLogger := log.New(os.Stderr, "", log.LstdFlags)
	probLogger.SetOutput(&lumberjack.Logger{
		Filename:   pfname,
		MaxSize:    10,   // megabytes after which new file is created
		MaxBackups: 4,    // number of backups
		MaxAge:     180,  // days
		Compress:   true, // whether to gzip the backups
	})
	return probLogger
}

// options holds the command-line settings that override the config file.
type options struct {
	synthetic string
	noise     float64
	radius    int
	holo      bool
	noAccel   bool
	debug     bool
	export    bool
}

// apply stores every flag the user actually set into the engine section.
func (o options) apply(fs *flag.FlagSet) {
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "synthetic":
			viper.Set("engine.synthetic", o.synthetic)
		case "noise":
			viper.Set("engine.noise", o.noise)
		case "radius":
			viper.Set("engine.smoothingradius", o.radius)
		case "holo":
			if o.holo {
				viper.Set("engine.diffmode", kinegraph.DiffHolo.String())
			} else {
				viper.Set("engine.diffmode", kinegraph.DiffSimple.String())
			}
		case "noa":
			viper.Set("engine.acceleration", !o.noAccel)
		case "debug":
			viper.Set("engine.debug", o.debug)
		case "export":
			viper.Set("engine.sweepexport", o.export)
		}
	})
}

func main() {
	buildDate = strings.Replace(buildDate, ".", " ", -1) // workaround for Make problems
	kinegraph.Build.Date = buildDate
	kinegraph.Build.Githash = githash
	kinegraph.Build.Gitdate = gitdate
	kinegraph.Build.Summary = fmt.Sprintf("Kinegraph version %s (git commit %s of %s)", kinegraph.Build.Version, githash, gitdate)
	if host, err := os.Hostname(); err == nil {
		kinegraph.Build.Host = host
	} else {
		kinegraph.Build.Host = "host not detected"
	}

	var opt options
	printVersion := flag.Bool("version", false, "print version and quit")
	cpuprofile := flag.String("cpuprofile", "", "write CPU profile to given file")
	memprofile := flag.String("memprofile", "", "write memory profile to given file")
	autostart := flag.String("start", "", "start sampling at once from POINTER or SYNTHETIC")
	flag.StringVar(&opt.synthetic, "synthetic", "", "synthetic signal: sine, linear or quadratic")
	flag.Float64Var(&opt.noise, "noise", 0, "amplitude of uniform noise added to synthetic signals")
	flag.IntVar(&opt.radius, "radius", kinegraph.DefaultSmoothingRadius, "smoothing radius of the velocity and acceleration channels")
	flag.BoolVar(&opt.holo, "holo", false, "differentiate with the smooth noise-robust kernel")
	flag.BoolVar(&opt.noAccel, "noa", false, "disable the acceleration channel")
	flag.BoolVar(&opt.debug, "debug", false, "strict buffer checks and configuration dump")
	flag.BoolVar(&opt.export, "export", false, "export each completed sweep as .npy files")
	flag.Parse()

	if *printVersion {
		fmt.Printf("This is Kinegraph version %s\n", kinegraph.Build.Version)
		fmt.Printf("Git commit hash: %s\n", githash)
		fmt.Printf("Build time: %s\n", buildDate)
		fmt.Printf("Built on go version %s\n", runtime.Version())
		fmt.Printf("Running on %d CPUs.\n", runtime.NumCPU())
		os.Exit(0)
	}

	banner := fmt.Sprintf("\nThis is Kinegraph version %s (git commit %s)\n", kinegraph.Build.Version, githash)
	fmt.Print(banner)

	if *cpuprofile != "" {
		f, err := os.Create(*cpuprofile)
		if err != nil {
			log.Fatal(err)
		}
		pprof.StartCPUProfile(f)
		defer pprof.StopCPUProfile()
	}

	// Start logging problems and updates to 2 log files.
	HOME, err := os.UserHomeDir()
	if err != nil {
		panic(err)
	}
	logdir := filepath.Join(HOME, ".kinegraph", "logs")
	problemname, err := makeFileExist(logdir, "problems.log")
	if err != nil {
		panic(err)
	}
	logname, err := makeFileExist(logdir, "updates.log")
	if err != nil {
		panic(err)
	}
	kinegraph.ProblemLogger = startLogger(problemname)
	kinegraph.UpdateLogger = startLogger(logname)
	fmt.Printf("Logging problems       to %s\n", problemname)
	fmt.Printf("Logging client updates to %s\n\n", logname)
	kinegraph.UpdateLogger.Printf("\n\n\n\n%s", banner)

	// Find config file, creating it if needed, and read it.
	if err := setupViper(); err != nil {
		panic(err)
	}
	opt.apply(flag.CommandLine)

	abort := make(chan struct{})
	go kinegraph.RunClientUpdater(kinegraph.Ports.Status, abort)
	kinegraph.RunRPCServer(kinegraph.Ports.RPC, *autostart, true)
	close(abort)
	writeMemoryProfile(memprofile)
}

// writeMemoryProfile writes the memory use profile to the indicated file.
// If `memprofile` points to an empty string, do not write.
func writeMemoryProfile(memprofile *string) {
	if *memprofile == "" {
		return
	}

	f, err := os.Create(*memprofile)
	if err != nil {
		log.Fatal("could not create memory profile: ", err)
	}
	defer f.Close()
	runtime.GC() // get up-to-date statistics
	if err := pprof.WriteHeapProfile(f); err != nil {
		log.Fatal("could not write memory profile: ", err)
	}
}
