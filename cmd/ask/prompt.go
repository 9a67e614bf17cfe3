package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

var errNoRobotHost = errors.New("robot address is required: pass --robot-ip or set robot.host")

// promptRobotHost asks for the robot address until the operator confirms
// it. An empty answer accepts suggested when it is set.
func promptRobotHost(in *bufio.Reader, out io.Writer, suggested string) (string, error) {
	for {
		if suggested != "" {
			fmt.Fprintf(out, "Enter the robot IP address [%s]: ", suggested)
		} else {
			fmt.Fprint(out, "Enter the robot IP address: ")
		}

		host, err := readLine(in)
		if err != nil {
			return "", err
		}
		if host == "" {
			host = suggested
		}
		if host == "" {
			continue
		}

		ok, err := confirm(in, out, fmt.Sprintf("Robot IP is %s. Is this correct? (y/n): ", host))
		if err != nil {
			return "", err
		}
		if ok {
			return host, nil
		}
	}
}

// confirm repeats question until the answer is yes or no.
func confirm(in *bufio.Reader, out io.Writer, question string) (bool, error) {
	for {
		fmt.Fprint(out, question)
		answer, err := readLine(in)
		if err != nil {
			return false, err
		}
		switch strings.ToLower(answer) {
		case "y", "yes":
			return true, nil
		case "n", "no":
			return false, nil
		}
		fmt.Fprintln(out, "Please answer y or n.")
	}
}

func readLine(in *bufio.Reader) (string, error) {
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		if errors.Is(err, io.EOF) {
			return "", errNoRobotHost
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}
