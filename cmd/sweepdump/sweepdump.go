package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/sbinet/npyio"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// summary holds the statistics printed for one exported sweep.
type summary struct {
	N            int
	Mean, StdDev float64
	Min, Max     float64
	First, Last  float64
}

func summarize(data []float64) summary {
	s := summary{N: len(data)}
	if len(data) == 0 {
		return s
	}
	s.Mean, s.StdDev = stat.MeanStdDev(data, nil)
	s.Min = floats.Min(data)
	s.Max = floats.Max(data)
	s.First = data[0]
	s.Last = data[len(data)-1]
	return s
}

func readSweep(r io.Reader) ([]float64, error) {
	var data []float64
	if err := npyio.Read(r, &data); err != nil {
		return nil, err
	}
	return data, nil
}

func dump(filename string, max int) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	data, err := readSweep(f)
	if err != nil {
		return fmt.Errorf("%s: %w", filename, err)
	}
	s := summarize(data)
	fmt.Printf("%s: %d samples\n", filename, s.N)
	if s.N == 0 {
		return nil
	}
	fmt.Printf("  mean %12.6f  std %12.6f\n", s.Mean, s.StdDev)
	fmt.Printf("  min  %12.6f  max %12.6f\n", s.Min, s.Max)
	fmt.Printf("  first %11.6f  last %11.6f\n", s.First, s.Last)
	if max > len(data) {
		max = len(data)
	}
	for i := 0; i < max; i++ {
		fmt.Printf("%6d %12.6f\n", i, data[i])
	}
	return nil
}

func main() {
	max := flag.Int("n", 0, "also print the first n samples of each sweep")
	flag.Usage = func() {
		fmt.Println("sweepdump, a program to summarize exported Kinegraph sweeps")
		fmt.Println("Usage: sweepdump [-n N] file.npy ...")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	status := 0
	for _, filename := range flag.Args() {
		if err := dump(filename, *max); err != nil {
			fmt.Fprintln(os.Stderr, err)
			status = 1
		}
	}
	os.Exit(status)
}
