// Package mock provides a fake test-management query service for testing
// polarsync components.
//
// The server speaks the same MCP tool protocol as the real service
// (query_test_cases, fetch_test_run, add_test_record, update_test_record)
// and is driven by a YAML fixture:
//
//	project: RHCF3
//	logged_in_user: jenkins
//	test_cases:
//	  - title: test_login[admin]
//	    work_item_id: RHCF3-101
//	    test_case_id: cfme.tests.ui.test_login
//	    assignee: qa1
//	runs:
//	  - name: nightly
//	    records:
//	      - test_case_id: RHCF3-101
//	faults:
//	  query_test_cases: 2
//	delay: 50ms
//
// faults fails the first N calls of a tool with a transient fault; delay
// adds latency to every call.
//
// Tests mount Handler on an httptest server. The mock-server command serves
// it with HTTPServer for manual runs.
package mock
