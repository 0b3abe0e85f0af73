package main

import "testing"

func TestParseArgsBasic(t *testing.T) {
	args, err := parseArgs([]string{
		"-f", "entry.cache",
		"-v",
		"--kObjCache-cpp", "out.i", "gcc", "-E", "in.c",
		"--kObjCache-cc", "out.o", "gcc", "-c", "out.i",
	})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if args.cacheFilePath != "entry.cache" {
		t.Errorf("cacheFilePath = %q, want %q", args.cacheFilePath, "entry.cache")
	}
	if !args.verbose {
		t.Error("expected verbose to be set")
	}
	if args.preprocessorName != "out.i" {
		t.Errorf("preprocessorName = %q, want %q", args.preprocessorName, "out.i")
	}
	wantCpp := []string{"gcc", "-E", "in.c"}
	if !equalStrings(args.preprocessorArgv, wantCpp) {
		t.Errorf("preprocessorArgv = %v, want %v", args.preprocessorArgv, wantCpp)
	}
	if args.compilerName != "out.o" {
		t.Errorf("compilerName = %q, want %q", args.compilerName, "out.o")
	}
	wantCc := []string{"gcc", "-c", "out.i"}
	if !equalStrings(args.compilerArgv, wantCc) {
		t.Errorf("compilerArgv = %v, want %v", args.compilerArgv, wantCc)
	}
}

func TestParseArgsBothSection(t *testing.T) {
	// --kObjCache-both appends to whatever argv lists are already open, so
	// it's placed after both sections have been declared.
	args, err := parseArgs([]string{
		"-f", "entry.cache",
		"--kObjCache-cpp", "out.i", "gcc", "-E",
		"--kObjCache-cc", "out.o", "gcc", "-c",
		"--kObjCache-both", "-DFOO=1", "-Wall",
	})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	wantCpp := []string{"gcc", "-E", "-DFOO=1", "-Wall"}
	if !equalStrings(args.preprocessorArgv, wantCpp) {
		t.Errorf("preprocessorArgv = %v, want %v", args.preprocessorArgv, wantCpp)
	}
	wantCc := []string{"gcc", "-c", "-DFOO=1", "-Wall"}
	if !equalStrings(args.compilerArgv, wantCc) {
		t.Errorf("compilerArgv = %v, want %v", args.compilerArgv, wantCc)
	}
}

func TestParseArgsRespecification(t *testing.T) {
	args, err := parseArgs([]string{
		"-f", "entry.cache",
		"--kObjCache-cpp", "first.i", "gcc", "-E", "a.c",
		"--kObjCache-cpp", "second.i", "gcc", "-E", "b.c",
		"--kObjCache-cc", "out.o", "gcc", "-c",
	})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if args.preprocessorName != "second.i" {
		t.Errorf("preprocessorName = %q, want %q (later section should win)", args.preprocessorName, "second.i")
	}
	want := []string{"gcc", "-E", "b.c"}
	if !equalStrings(args.preprocessorArgv, want) {
		t.Errorf("preprocessorArgv = %v, want %v", args.preprocessorArgv, want)
	}
}

func TestParseArgsMissingFile(t *testing.T) {
	_, err := parseArgs([]string{
		"--kObjCache-cpp", "out.i", "gcc",
		"--kObjCache-cc", "out.o", "gcc",
	})
	if err == nil {
		t.Error("expected a syntax error for a missing -f/--file")
	}
}

func TestParseArgsMissingSections(t *testing.T) {
	_, err := parseArgs([]string{"-f", "entry.cache"})
	if err == nil {
		t.Error("expected a syntax error for missing --kObjCache-cpp/--kObjCache-cc sections")
	}
}

func TestParseArgsUnrecognizedToken(t *testing.T) {
	_, err := parseArgs([]string{"--bogus"})
	if err == nil {
		t.Error("expected a syntax error for an unrecognized token")
	}
}

func TestParseArgsHelpAndVersionSkipValidation(t *testing.T) {
	args, err := parseArgs([]string{"-h"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if !args.showHelp {
		t.Error("expected showHelp to be set")
	}

	args, err = parseArgs([]string{"-V"})
	if err != nil {
		t.Fatalf("parseArgs failed: %v", err)
	}
	if !args.showVersion {
		t.Error("expected showVersion to be set")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
