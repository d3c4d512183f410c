package main

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"path"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/fanpei91/waitq/synch"
)

const (
	version    = "0.1.0"
	configDir  = ".waitq"
	configFile = "config.json"
)

type config struct {
	NCPU    int `json:"ncpu"`
	LoadAvg int `json:"loadavg"`
	TickMS  int `json:"tick_ms"`
}

func defaultConf() *config {
	return &config{
		NCPU:    1,
		LoadAvg: 1,
		TickMS:  1000,
	}
}

func (c *config) scheduler() synch.Config {
	return synch.Config{
		NCPU:         c.NCPU,
		LoadAvg:      c.LoadAvg,
		TickInterval: time.Duration(c.TickMS) * time.Millisecond,
	}
}

func workDir() string {
	dir, _ := homedir.Dir()
	return path.Join(dir, configDir)
}

func loadConf(dir string) (conf *config, err error) {
	message := "could not load config file"
	conf = defaultConf()

	var buf []byte
	if buf, err = ioutil.ReadFile(path.Join(dir, configFile)); err != nil {
		if os.IsNotExist(err) {
			return conf, nil
		}
		err = errors.Wrap(err, message)
		return
	}
	if err = json.Unmarshal(buf, conf); err != nil {
		err = errors.Wrap(err, message)
	}
	return
}

func printLog(v interface{}) {
	log.Printf("%+v\n", v)
}

func main() {
	log.SetFlags(0)

	var root = &cobra.Command{
		Use:           os.Args[0],
		Short:         "Waitq hosts integer-named sleep and wakeup for cooperating processes.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cobra.EnableCommandSorting = false
	log.SetOutput(os.Stdout)

	if err := os.MkdirAll(workDir(), 0750); err != nil {
		fmt.Println(errors.WithStack(err))
		os.Exit(1)
	}
	conf, err := loadConf(workDir())
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	root.AddCommand(cmdServer(conf))
	root.AddCommand(cmdSleep())
	root.AddCommand(cmdWakeup())
	root.AddCommand(cmdStats())
	root.AddCommand(cmdStress(conf))
	root.AddCommand(cmdVersion())

	var format = "%s\n"
	if wasBorn() {
		log.SetFlags(log.LstdFlags | log.Llongfile)
		format = "%+v\n"
	}

	if err := root.Execute(); err != nil {
		log.Printf(format, err)
		os.Exit(1)
	}
}
