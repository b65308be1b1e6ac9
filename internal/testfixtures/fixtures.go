// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package testfixtures holds source and snapshot fixtures shared by the
// snapsight package tests. Line numbers in the comments are 0-based.
package testfixtures

// TestSource is a Jest test file exercising anonymous, nested, custom-named
// and property-matcher snapshot calls.
//
//	line  1: it("test")                      -> "test 1"
//	line  5: it.only("test2")                -> "test2 1"
//	line  9: describe("a") > it("test2")     -> "a test2 1", "a test2 2"
//	line 22: describe("valid") > it("test1") -> "valid test1 1..3"
//	line 29: describe("inner") > test2/test3
//	line 40: describe("custom") > it("with custom names")
//	line 53: it("property matchers")
//	line 59: it(title) with a runtime title
const TestSource = `
it("test", () => {
    expect(a).toMatchSnapshot();
});

it.only("test2", () => {
    expect(a).toMatchSnapshot();
});

describe("a", () => {
    it("test2", () => {
        expect(b).toMatchSnapshot();
        expect(c).toMatchSnapshot();
    });
});

describe();
describe("test", () => {});
it("test", () => {
    expect(a).toBe(1);
});

describe("valid", () => {
    it("test1", () => {
        expect(a).toMatchSnapshot();
        expect(a).toMatchSnapshot();
        expect(a).toMatchSnapshot();
    });

    describe("inner", () => {
        it("test2", () => {
            expect(b).toMatchSnapshot();
        });

        it("test3", () => {
            expect(b).toMatchSnapshot();
        });
    });
});

describe("custom", () => {
    it("with custom names", () => {
        expect(a).toMatchSnapshot();
        expect(a).toMatchSnapshot("custom");
        expect(a).toMatchSnapshot("custom");
        expect(a).toMatchSnapshot();
        expect(a).toMatchSnapshot("custom2");
        expect(a).toMatchSnapshot();
        expect(a).toMatchSnapshot("custom");
        expect(a).toMatchSnapshot("custom2");
    });
});

it("property matchers", () => {
    expect(a).toMatchSnapshot({ a: expect.any(String) });
    expect(a).toMatchSnapshot({ a: expect.any(String) }, "Snapshot name");
});

const title = compute();
it(title, () => {
    expect(a).toMatchSnapshot();
});
`

// TestSnapshot is the artifact file recorded for TestSource.
const TestSnapshot = "// Jest Snapshot v1, https://goo.gl/fbAQLP\n" +
	"\n" +
	"exports[`test 1`] = `\"test 1\"`;\n" +
	"\n" +
	"exports[`test2 1`] = `\"test2 1\"`;\n" +
	"\n" +
	"exports[`a test2 1`] = `\"a test2 1\"`;\n" +
	"\n" +
	"exports[`a test2 2`] = `\"a test2 2\"`;\n" +
	"\n" +
	"exports[`valid test1 1`] = `\"valid test1 1\"`;\n" +
	"\n" +
	"exports[`valid test1 2`] = `\"valid test1 2\"`;\n" +
	"\n" +
	"exports[`valid test1 3`] = `\"valid test1 3\"`;\n" +
	"\n" +
	"exports[`valid inner test2 1`] = `\"valid inner test2 1\"`;\n" +
	"\n" +
	"exports[`valid inner test3 1`] = `\n" +
	"Object {\n" +
	"  \"inner\": true,\n" +
	"}\n" +
	"`;\n" +
	"\n" +
	"exports[`custom with custom names 1`] = `\"anonymous 1\"`;\n" +
	"\n" +
	"exports[`custom with custom names 2`] = `\"anonymous 2\"`;\n" +
	"\n" +
	"exports[`custom with custom names 3`] = `\"anonymous 3\"`;\n" +
	"\n" +
	"exports[`custom with custom names: custom 1`] = `\"custom 1\"`;\n" +
	"\n" +
	"exports[`custom with custom names: custom 2`] = `\"custom 2\"`;\n" +
	"\n" +
	"exports[`custom with custom names: custom 3`] = `\"custom 3\"`;\n" +
	"\n" +
	"exports[`custom with custom names: custom2 1`] = `\"custom2 1\"`;\n" +
	"\n" +
	"exports[`custom with custom names: custom2 2`] = `\"custom2 2\"`;\n" +
	"\n" +
	"exports[`property matchers 1`] = `\n" +
	"Object {\n" +
	"  \"a\": Any<String>,\n" +
	"}\n" +
	"`;\n" +
	"\n" +
	"exports[`property matchers: Snapshot name 1`] = `\n" +
	"Object {\n" +
	"  \"a\": Any<String>,\n" +
	"}\n" +
	"`;\n" +
	"\n" +
	"exports[`title 1`] = `\"never reachable\"`;\n"

// ParserSnapshot mixes quote styles, a module.exports container and an
// empty value.
const ParserSnapshot = "\n" +
	"        exports[\"abc\"] = \"abc\";\n" +
	"\n" +
	"        exports[`abc`] = `\n" +
	"        abc,\n" +
	"        def\n" +
	"        `;\n" +
	"\n" +
	"        module.exports[\"bb\"] = \"abc\";\n" +
	"\n" +
	"        exports[\"def\"] = \"\";\n"

// ConstantsSource exercises block titles that need constant folding. Every
// block holds one snapshot call on the following line.
//
//	line  4: it(a)                          -> "via constant"
//	line  8: it(`substitution ${a}`)        -> "substitution via constant"
//	line 15: it(`another ${a}, ${b}, ${c}`) -> "another via constant, 5, via constant"
//	line 19: it(Test)                       -> "exported constant" (named import)
//	line 23: it(`imported ${Test}`)         -> "imported exported constant"
//	line 27: it(consts.Test)                -> "exported constant" (namespace import)
//	line 31: it("exp" + a)                  -> "expvia constant"
//	line 36: it(Kind.Unit + " " + a)        -> "unit via constant"
//	line 41: it(labels.first)               -> "first label"
//	line 45: it(`${b}`)                     -> "5"
//	line 49: it(b)                          -> unresolved, numbers are not names
const ConstantsSource = `import { Test } from "./constants";
import * as consts from "./constants";

const a = "via constant";
it(a, () => {
    expect(a).toMatchSnapshot();
});

it(` + "`substitution ${a}`" + `, () => {
    expect(a).toMatchSnapshot();
});

const b = 5;
const c = a;

it(` + "`another ${a}, ${b}, ${c}`" + `, () => {
    expect(a).toMatchSnapshot();
});

it(Test, () => {
    expect(a).toMatchSnapshot();
});

it(` + "`imported ${Test}`" + `, () => {
    expect(a).toMatchSnapshot();
});

it(consts.Test, () => {
    expect(a).toMatchSnapshot();
});

it("exp" + a, () => {
    expect(a).toMatchSnapshot();
});

enum Kind { Unit = "unit", Other = "other" }
it(Kind.Unit + " " + a, () => {
    expect(a).toMatchSnapshot();
});

const labels = { first: "first label" } as const;
it(labels.first, () => {
    expect(a).toMatchSnapshot();
});

it(` + "`${b}`" + `, () => {
    expect(a).toMatchSnapshot();
});

it(b, () => {
    expect(a).toMatchSnapshot();
});
`

// ConstantsModule is the "./constants" module imported by ConstantsSource.
const ConstantsModule = `const base = "exported constant";
export const Test = base;
export const Other = "other";
`
